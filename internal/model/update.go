package model

// ScoreField enumerates the independently-writable scoreboard counters.
// Callers update counters through these constants rather than raw field
// names; the repository alone translates them to the wire form.
type ScoreField string

const (
	FieldBalls     ScoreField = "balls"
	FieldStrikes   ScoreField = "strikes"
	FieldOuts      ScoreField = "outs"
	FieldInning    ScoreField = "inning"
	FieldHits      ScoreField = "hits"
	FieldWalks     ScoreField = "walks"
	FieldHomeScore ScoreField = "homeScore"
	FieldAwayScore ScoreField = "awayScore"
)

// Valid reports whether f is one of the enumerated counters.
func (f ScoreField) Valid() bool {
	switch f {
	case FieldBalls, FieldStrikes, FieldOuts, FieldInning,
		FieldHits, FieldWalks, FieldHomeScore, FieldAwayScore:
		return true
	}
	return false
}

// ScoreUpdate sets one scoreboard counter to an absolute value.
type ScoreUpdate struct {
	Field ScoreField `json:"field"`
	Value int        `json:"value"`
}
