package model

import "time"

// Event is one appended pitch/result record in a session's event log.
// The payload is opaque to the coordination core; it is stored and
// returned verbatim.
type Event struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	AuthorID  string    `json:"authorId" bson:"authorId"`
	Payload   Value     `json:"payload" bson:"payload"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
