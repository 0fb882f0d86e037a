package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"dugout/internal/model"
)

type SessionRepo interface {
	Create(ctx context.Context, session *model.LiveSession) error
	GetByID(ctx context.Context, id string) (*model.LiveSession, error)

	// Partial merge writes. Each call touches only the named fields;
	// concurrent writers of distinct fields never conflict.
	UpdateScoreboard(ctx context.Context, id string, updates []model.ScoreUpdate) error
	SetLineup(ctx context.Context, id string, jerseys, playerIDs []string) error
	SetPendingCall(ctx context.Context, id string, call model.Value) error
	ClearPendingCall(ctx context.Context, id string) error
	SetSelectedPlayer(ctx context.Context, id, playerID, jersey string) error
	ClearSelectedPlayer(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status model.SessionStatus) error

	// AppendPlayer and MigrateLineup run in transactions: they are the
	// only writes with a cross-field invariant (the parallel lineup
	// arrays must stay length-equal) that a bare merge could break
	// under concurrent writers.
	AppendPlayer(ctx context.Context, id, jersey string) (playerID string, err error)
	MigrateLineup(ctx context.Context, id string) ([]string, error)
}

type sessionRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewSessionRepo(client *mongo.Client, db *mongo.Database) SessionRepo {
	return &sessionRepo{
		client:     client,
		collection: db.Collection("sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.LiveSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) UpdateScoreboard(ctx context.Context, id string, updates []model.ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	fields := bson.M{}
	for _, u := range updates {
		if !u.Field.Valid() {
			return errors.New("unknown scoreboard field: " + string(u.Field))
		}
		fields[string(u.Field)] = u.Value
	}
	return r.set(ctx, id, fields)
}

func (r *sessionRepo) SetLineup(ctx context.Context, id string, jerseys, playerIDs []string) error {
	if len(jerseys) != len(playerIDs) {
		return ErrLineupMismatch
	}
	return r.set(ctx, id, bson.M{"jerseys": jerseys, "playerIds": playerIDs})
}

func (r *sessionRepo) SetPendingCall(ctx context.Context, id string, call model.Value) error {
	return r.set(ctx, id, bson.M{"pendingCall": call})
}

// ClearPendingCall removes the field entirely rather than writing an
// empty value, so readers can tell "no pending call" from "pending call
// with empty payload".
func (r *sessionRepo) ClearPendingCall(ctx context.Context, id string) error {
	return r.unset(ctx, id, "pendingCall")
}

func (r *sessionRepo) SetSelectedPlayer(ctx context.Context, id, playerID, jersey string) error {
	return r.set(ctx, id, bson.M{"selectedPlayerId": playerID, "selectedJersey": jersey})
}

func (r *sessionRepo) ClearSelectedPlayer(ctx context.Context, id string) error {
	return r.unset(ctx, id, "selectedPlayerId", "selectedJersey")
}

func (r *sessionRepo) SetStatus(ctx context.Context, id string, status model.SessionStatus) error {
	return r.set(ctx, id, bson.M{"status": status})
}

func (r *sessionRepo) AppendPlayer(ctx context.Context, id, jersey string) (string, error) {
	result, err := runTxn(ctx, r.client, func(sc mongo.SessionContext) (interface{}, error) {
		var session model.LiveSession
		if err := r.collection.FindOne(sc, bson.M{"_id": id}).Decode(&session); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if len(session.Jerseys) != len(session.PlayerIDs) {
			return nil, ErrLineupMismatch
		}
		for _, existing := range session.Jerseys {
			if existing == jersey {
				return nil, ErrDuplicateJersey
			}
		}

		playerID := uuid.New().String()
		jerseys := append(session.Jerseys, jersey)
		playerIDs := append(session.PlayerIDs, playerID)

		_, err := r.collection.UpdateOne(sc, bson.M{"_id": id}, bson.M{
			"$set": bson.M{"jerseys": jerseys, "playerIds": playerIDs},
		})
		if err != nil {
			return nil, err
		}
		return playerID, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// MigrateLineup regenerates the stable-id array when it is missing or
// mismatched against the jersey array. Idempotent: a healthy lineup is
// a no-op, so two racing callers serialized by the transaction cannot
// produce divergent id sets.
func (r *sessionRepo) MigrateLineup(ctx context.Context, id string) ([]string, error) {
	result, err := runTxn(ctx, r.client, func(sc mongo.SessionContext) (interface{}, error) {
		var session model.LiveSession
		if err := r.collection.FindOne(sc, bson.M{"_id": id}).Decode(&session); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if len(session.PlayerIDs) == len(session.Jerseys) && len(session.PlayerIDs) > 0 {
			return session.PlayerIDs, nil
		}
		if len(session.Jerseys) == 0 {
			return []string{}, nil
		}

		playerIDs := make([]string, len(session.Jerseys))
		for i := range playerIDs {
			playerIDs[i] = uuid.New().String()
		}
		_, err := r.collection.UpdateOne(sc, bson.M{"_id": id}, bson.M{
			"$set": bson.M{"playerIds": playerIDs},
		})
		if err != nil {
			return nil, err
		}
		return playerIDs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (r *sessionRepo) set(ctx context.Context, id string, fields bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepo) unset(ctx context.Context, id string, fields ...string) error {
	unset := bson.M{}
	for _, f := range fields {
		unset[f] = ""
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": unset})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
