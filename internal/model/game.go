package model

import "time"

// Game is the owner's durable private scorebook record. The
// coordination core only reads it, to seed a new session's lineup; it
// is owned and written elsewhere.
type Game struct {
	ID        string    `json:"id" bson:"_id"`
	OwnerID   string    `json:"ownerId" bson:"ownerId"`
	Title     string    `json:"title" bson:"title"`
	Jerseys   []string  `json:"jerseys" bson:"jerseys"`
	PlayerIDs []string  `json:"playerIds" bson:"playerIds"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
