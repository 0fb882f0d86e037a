package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dugout/internal/model"
)

type EventRepo interface {
	// Add appends an event under a store-generated key. Unconditional
	// create: the coordination core never interprets event contents.
	Add(ctx context.Context, event *model.Event) error
	ListBySession(ctx context.Context, sessionID string) ([]*model.Event, error)
}

type eventRepo struct {
	collection *mongo.Collection
}

func NewEventRepo(db *mongo.Database) EventRepo {
	repo := &eventRepo{
		collection: db.Collection("events"),
	}
	keys := bson.D{
		{Key: "sessionId", Value: 1},
		{Key: "createdAt", Value: 1},
	}
	repo.collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: keys})
	return repo
}

func (r *eventRepo) Add(ctx context.Context, event *model.Event) error {
	if event.ID == "" {
		event.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *eventRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*model.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
