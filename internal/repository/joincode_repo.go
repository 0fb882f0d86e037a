package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"dugout/internal/model"
)

type JoinCodeRepo interface {
	// CreateUnique inserts the code document if and only if no document
	// with the same code exists. The check and the insert run in one
	// transaction; concurrent allocators racing on the same candidate
	// see ErrCodeTaken, never a double insert.
	CreateUnique(ctx context.Context, code *model.JoinCode) error
	GetByCode(ctx context.Context, code string) (*model.JoinCode, error)
	// MarkConsumed records the most recent resolver. Informational
	// only; codes stay resolvable until expiry.
	MarkConsumed(ctx context.Context, code, participantID string, at time.Time) error
}

type joinCodeRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewJoinCodeRepo(client *mongo.Client, db *mongo.Database) JoinCodeRepo {
	return &joinCodeRepo{
		client:     client,
		collection: db.Collection("join_codes"),
	}
}

func (r *joinCodeRepo) CreateUnique(ctx context.Context, code *model.JoinCode) error {
	_, err := runTxn(ctx, r.client, func(sc mongo.SessionContext) (interface{}, error) {
		err := r.collection.FindOne(sc, bson.M{"_id": code.Code}).Err()
		if err == nil {
			return nil, ErrCodeTaken
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return r.collection.InsertOne(sc, code)
	})
	return err
}

func (r *joinCodeRepo) GetByCode(ctx context.Context, code string) (*model.JoinCode, error) {
	var doc model.JoinCode
	err := r.collection.FindOne(ctx, bson.M{"_id": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *joinCodeRepo) MarkConsumed(ctx context.Context, code, participantID string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": code}, bson.M{
		"$set": bson.M{
			"consumedBy": participantID,
			"consumedAt": at,
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
