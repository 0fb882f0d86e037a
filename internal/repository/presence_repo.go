package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dugout/internal/model"
)

type PresenceRepo interface {
	// Join upserts the participant's presence record. Re-joining only
	// refreshes lastSeenAt (and the display name); joinedAt is written
	// once, on first insert.
	Join(ctx context.Context, sessionID, participantID, name string, now time.Time) error
	// Heartbeat refreshes lastSeenAt.
	Heartbeat(ctx context.Context, sessionID, participantID string, now time.Time) error
	ListBySession(ctx context.Context, sessionID string) ([]*model.Presence, error)
}

type presenceRepo struct {
	collection *mongo.Collection
}

func NewPresenceRepo(db *mongo.Database) PresenceRepo {
	repo := &presenceRepo{
		collection: db.Collection("presence"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *presenceRepo) ensureIndexes(ctx context.Context) {
	keys := bson.D{
		{Key: "sessionId", Value: 1},
		{Key: "participantId", Value: 1},
	}
	opts := options.Index().SetUnique(true)
	// Index creation is best effort; presence stays correct without it.
	r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
}

func (r *presenceRepo) filter(sessionID, participantID string) bson.M {
	return bson.M{"sessionId": sessionID, "participantId": participantID}
}

func (r *presenceRepo) Join(ctx context.Context, sessionID, participantID, name string, now time.Time) error {
	set := bson.M{"lastSeenAt": now}
	if name != "" {
		set["name"] = name
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"joinedAt": now},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, r.filter(sessionID, participantID), update, opts)
	return err
}

func (r *presenceRepo) Heartbeat(ctx context.Context, sessionID, participantID string, now time.Time) error {
	update := bson.M{
		"$set":         bson.M{"lastSeenAt": now},
		"$setOnInsert": bson.M{"joinedAt": now},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, r.filter(sessionID, participantID), update, opts)
	return err
}

func (r *presenceRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.Presence, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.Presence
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
