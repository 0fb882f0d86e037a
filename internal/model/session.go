package model

import "time"

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// LiveSession is the shared scoring record both the owner and joined
// participants read and write. Scoreboard counters are flat fields so
// concurrent writers touching different counters never conflict; the
// store merges at field granularity, last write wins per field.
type LiveSession struct {
	ID      string `json:"id" bson:"_id"`
	OwnerID string `json:"ownerId" bson:"ownerId"`
	GameID  string `json:"gameId" bson:"gameId"`
	Title   string `json:"title" bson:"title"`

	Status    SessionStatus `json:"status" bson:"status"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt" bson:"expiresAt"`

	// Scoreboard
	Balls     int `json:"balls" bson:"balls"`
	Strikes   int `json:"strikes" bson:"strikes"`
	Outs      int `json:"outs" bson:"outs"`
	Inning    int `json:"inning" bson:"inning"`
	Hits      int `json:"hits" bson:"hits"`
	Walks     int `json:"walks" bson:"walks"`
	HomeScore int `json:"homeScore" bson:"homeScore"`
	AwayScore int `json:"awayScore" bson:"awayScore"`

	// Lineup as parallel arrays: Jerseys[i] is labeled by PlayerIDs[i].
	// Invariant: equal length. PlayerIDs are generated once and stay
	// stable across edits so event records can reference them.
	Jerseys   []string `json:"jerseys" bson:"jerseys"`
	PlayerIDs []string `json:"playerIds" bson:"playerIds"`

	// PendingCall is an in-flight call awaiting acknowledgment. Absent
	// (not null) when there is no pending call; cleared by removing the
	// field so readers can tell "no call" from "call with empty payload".
	PendingCall *Value `json:"pendingCall,omitempty" bson:"pendingCall,omitempty"`

	SelectedPlayerID string `json:"selectedPlayerId,omitempty" bson:"selectedPlayerId,omitempty"`
	SelectedJersey   string `json:"selectedJersey,omitempty" bson:"selectedJersey,omitempty"`
}

// Expired reports whether the session is past its expiry at now.
func (s *LiveSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
