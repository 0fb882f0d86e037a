package model

import "time"

// JoinCode maps a short numeric code to a live session. The code is the
// document key, so uniqueness is uniqueness of the key; creation goes
// through a transactional check-then-insert so two concurrent
// allocators can never both claim the same code.
//
// Codes are multi-use until they expire: ConsumedBy/ConsumedAt record
// the most recent resolver for display purposes only and grant nothing.
type JoinCode struct {
	Code      string    `json:"code" bson:"_id"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	OwnerID   string    `json:"ownerId" bson:"ownerId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`

	ConsumedBy string     `json:"consumedBy,omitempty" bson:"consumedBy,omitempty"`
	ConsumedAt *time.Time `json:"consumedAt,omitempty" bson:"consumedAt,omitempty"`
}

// Expired reports whether the code is past its expiry at now. Expiry is
// enforced by readers; code documents are never deleted.
func (c *JoinCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
