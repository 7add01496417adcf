package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

const collectionAuthLogs = "auth_logs"

// AuthLogRepository is the append-only auth audit log.
type AuthLogRepository struct {
	col *mongo.Collection
}

func NewAuthLogRepository(db *mongo.Database) *AuthLogRepository {
	return &AuthLogRepository{col: db.Collection(collectionAuthLogs)}
}

type mongoAuthLog struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UserID        string             `bson:"user_id"`
	Action        string             `bson:"action"`
	Status        string             `bson:"status"`
	FailureReason string             `bson:"failure_reason,omitempty"`
	DeviceInfo    domain.ClientInfo  `bson:"device_info"`
	Timestamp     time.Time          `bson:"timestamp"`
}

type mongoAuthLogView struct {
	Entry mongoAuthLog `bson:",inline"`
	User  []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Name  string             `bson:"name"`
		Email string             `bson:"email"`
	} `bson:"user"`
}

func (r *AuthLogRepository) Insert(ctx context.Context, e *domain.AuthLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, mongoAuthLog{
		UserID:        e.UserID,
		Action:        string(e.Action),
		Status:        string(e.Status),
		FailureReason: e.FailureReason,
		DeviceInfo:    e.DeviceInfo,
		Timestamp:     e.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert auth log: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid.Hex()
	}
	return nil
}

// Recent joins each entry with its user. Placeholder ids from unknown-email
// attempts are not ObjectIds; $convert maps them to null so the lookup finds
// nothing and the entry is returned without a user.
func (r *AuthLogRepository) Recent(ctx context.Context, limit int) ([]domain.AuthLogView, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$addFields", Value: bson.M{
			"user_oid": bson.M{"$convert": bson.M{
				"input":   "$user_id",
				"to":      "objectId",
				"onError": nil,
				"onNull":  nil,
			}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionUsers,
			"localField":   "user_oid",
			"foreignField": "_id",
			"as":           "user",
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate auth logs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoAuthLogView
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode auth logs: %w", err)
	}

	out := make([]domain.AuthLogView, 0, len(docs))
	for _, d := range docs {
		e := d.Entry
		view := domain.AuthLogView{AuthLogEntry: domain.AuthLogEntry{
			ID:            e.ID.Hex(),
			UserID:        e.UserID,
			Action:        domain.AuthAction(e.Action),
			Status:        domain.AuthStatus(e.Status),
			FailureReason: e.FailureReason,
			DeviceInfo:    e.DeviceInfo,
			Timestamp:     e.Timestamp.UTC(),
		}}
		if len(d.User) > 0 {
			u := d.User[0]
			view.User = &domain.AuthLogUser{ID: u.ID.Hex(), Name: u.Name, Email: u.Email}
		}
		out = append(out, view)
	}
	return out, nil
}

func (r *AuthLogRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("timestamp_desc")},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	return err
}
