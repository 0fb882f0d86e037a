package model

import "time"

// Presence is one participant's liveness record within a session.
// Upserted on first join, refreshed by heartbeats, never deleted.
// JoinedAt survives re-joins; only LastSeenAt moves.
type Presence struct {
	SessionID     string    `json:"sessionId" bson:"sessionId"`
	ParticipantID string    `json:"participantId" bson:"participantId"`
	Name          string    `json:"name,omitempty" bson:"name,omitempty"`
	JoinedAt      time.Time `json:"joinedAt" bson:"joinedAt"`
	LastSeenAt    time.Time `json:"lastSeenAt" bson:"lastSeenAt"`
}
