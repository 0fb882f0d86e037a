package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrCodeTaken signals that a join-code candidate already exists.
	// The allocator treats it as a retry trigger, never surfaces it raw.
	ErrCodeTaken = errors.New("join code already taken")

	// ErrNotFound is returned by mutating operations whose target
	// document does not exist. Point reads return (nil, nil) instead.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateJersey rejects a lineup append whose jersey label is
	// already present.
	ErrDuplicateJersey = errors.New("jersey already in lineup")

	// ErrLineupMismatch reports parallel lineup arrays of unequal
	// length where a repair was expected to have run.
	ErrLineupMismatch = errors.New("lineup arrays length mismatch")
)

// runTxn executes fn inside a MongoDB transaction. Check-then-create
// and the lineup array mutations need this: the read and the dependent
// write must be atomic with respect to other writers.
func runTxn(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	sess, err := client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	return sess.WithTransaction(ctx, fn)
}
