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
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
)

// TelemetryRepository implements ports.TelemetryRepository with one collection
// per telemetry kind.
type TelemetryRepository struct {
	db *mongo.Database
}

func NewTelemetryRepository(db *mongo.Database) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

type mongoTelemetry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	DeviceID   string             `bson:"device_id"`
	Timestamp  time.Time          `bson:"timestamp"`
	Data       bson.M             `bson:"data,omitempty"`
	ReceivedAt time.Time          `bson:"received_at"`
}

func (m mongoTelemetry) toDomain(kind domain.TelemetryKind) *domain.TelemetryRecord {
	return &domain.TelemetryRecord{
		ID:         m.ID.Hex(),
		Kind:       kind,
		DeviceID:   m.DeviceID,
		Timestamp:  m.Timestamp.UTC(),
		Data:       map[string]any(m.Data),
		ReceivedAt: m.ReceivedAt.UTC(),
	}
}

func (r *TelemetryRepository) col(kind domain.TelemetryKind) *mongo.Collection {
	return r.db.Collection(kind.Collection())
}

func (r *TelemetryRepository) Insert(ctx context.Context, rec *domain.TelemetryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col(rec.Kind).InsertOne(ctx, mongoTelemetry{
		DeviceID:   rec.DeviceID,
		Timestamp:  rec.Timestamp.UTC(),
		Data:       bson.M(rec.Data),
		ReceivedAt: rec.ReceivedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.Kind, err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid.Hex()
	}
	return nil
}

// List returns a page of one device's records, newest first, plus the total.
func (r *TelemetryRepository) List(ctx context.Context, f ports.TelemetryFilter) ([]*domain.TelemetryRecord, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := buildTelemetryFilter(f)
	col := r.col(f.Kind)

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", f.Kind, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find %s: %w", f.Kind, err)
	}
	defer cursor.Close(ctx)

	var docs []mongoTelemetry
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", f.Kind, err)
	}

	records := make([]*domain.TelemetryRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toDomain(f.Kind))
	}
	return records, total, nil
}

func buildTelemetryFilter(f ports.TelemetryFilter) bson.M {
	filter := bson.M{"device_id": f.DeviceID}
	ts := bson.M{}
	if !f.From.IsZero() {
		ts["$gte"] = f.From.UTC()
	}
	if !f.To.IsZero() {
		ts["$lte"] = f.To.UTC()
	}
	if len(ts) > 0 {
		filter["timestamp"] = ts
	}
	return filter
}

func (r *TelemetryRepository) FindByID(ctx context.Context, kind domain.TelemetryKind, id string) (*domain.TelemetryRecord, error) {
	oid, err := objectID(id, domain.ErrRecordNotFound)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTelemetry
	if err := r.col(kind).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}
	return doc.toDomain(kind), nil
}

// Latest returns the device's newest record, served by the device/timestamp index.
func (r *TelemetryRepository) Latest(ctx context.Context, kind domain.TelemetryKind, deviceID string) (*domain.TelemetryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var doc mongoTelemetry
	if err := r.col(kind).FindOne(ctx, bson.M{"device_id": deviceID}, opts).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("latest %s: %w", kind, err)
	}
	return doc.toDomain(kind), nil
}

func (r *TelemetryRepository) Update(ctx context.Context, kind domain.TelemetryKind, id string, data map[string]any, timestamp time.Time) (*domain.TelemetryRecord, error) {
	oid, err := objectID(id, domain.ErrRecordNotFound)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoTelemetry
	err = r.col(kind).FindOneAndUpdate(ctx, bson.M{"_id": oid}, telemetryUpdate(data, timestamp), opts).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("update %s: %w", kind, err)
	}
	return doc.toDomain(kind), nil
}

// telemetryUpdate never sets device_id, so a record cannot move between devices.
func telemetryUpdate(data map[string]any, timestamp time.Time) bson.M {
	set := bson.M{"data": bson.M(data)}
	if !timestamp.IsZero() {
		set["timestamp"] = timestamp.UTC()
	}
	return bson.M{"$set": set}
}

func (r *TelemetryRepository) Delete(ctx context.Context, kind domain.TelemetryKind, id string) error {
	oid, err := objectID(id, domain.ErrRecordNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col(kind).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// EnsureIndexes creates the device/timestamp index on every kind's collection.
func (r *TelemetryRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	for _, kind := range domain.TelemetryKinds() {
		_, err := r.col(kind).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "device_id", Value: 1}, {Key: "timestamp", Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}
