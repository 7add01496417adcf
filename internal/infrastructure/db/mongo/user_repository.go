package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

const (
	collectionUsers     = "users"
	indexUniqEmail      = "uniq_email"
	indexUniqSuperAdmin = "uniq_super_admin"
)

// UserRepository implements ports.UserRepository on the users collection.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Email          string             `bson:"email"`
	Name           string             `bson:"name"`
	PasswordHash   string             `bson:"password_hash"`
	Role           string             `bson:"role"`
	AllowedDevices []string           `bson:"allowed_devices"`
	ResetToken     string             `bson:"reset_token,omitempty"`
	ResetExpiresAt *time.Time         `bson:"reset_expires_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	devices := u.AllowedDevices
	if devices == nil {
		devices = []string{}
	}
	doc := mongoUser{
		Email:          u.Email,
		Name:           u.Name,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		AllowedDevices: devices,
		ResetToken:     u.ResetToken,
		ResetExpiresAt: u.ResetExpiresAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (m mongoUser) toDomain() *domain.User {
	devices := m.AllowedDevices
	if devices == nil {
		devices = []string{}
	}
	return &domain.User{
		ID:             m.ID.Hex(),
		Email:          m.Email,
		Name:           m.Name,
		PasswordHash:   m.PasswordHash,
		Role:           domain.Role(m.Role),
		AllowedDevices: devices,
		ResetToken:     m.ResetToken,
		ResetExpiresAt: m.ResetExpiresAt,
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id, domain.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByRole(ctx context.Context, role domain.Role) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"role": string(role)})
}

// Create inserts user and returns it with its assigned id.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoUser(user)
	doc.ID = primitive.NilObjectID
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, classifyDuplicate(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

// SetResetToken sets only the reset fields, leaving allowed_devices to
// $addToSet writers.
func (r *UserRepository) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	oid, err := objectID(userID, domain.ErrUserNotFound)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, resetTokenUpdate(token, expiresAt, time.Now()))
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func resetTokenUpdate(token string, expiresAt, now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"reset_token":      token,
		"reset_expires_at": expiresAt.UTC(),
		"updated_at":       now.UTC(),
	}}
}

// AddAllowedDevice appends deviceID with $addToSet, so concurrent assignments
// never produce duplicate entries.
func (r *UserRepository) AddAllowedDevice(ctx context.Context, userID, deviceID string) (*domain.User, error) {
	oid, err := objectID(userID, domain.ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$addToSet": bson.M{"allowed_devices": deviceID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoUser
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("add allowed device: %w", err)
	}
	return doc.toDomain(), nil
}

// ConsumeResetToken swaps the password and clears the reset fields in one
// conditional update. Of two concurrent redemptions only one matches.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, userID, token, passwordHash string, now time.Time) error {
	oid, err := objectID(userID, domain.ErrInvalidOrExpiredToken)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":              oid,
		"reset_token":      token,
		"reset_expires_at": bson.M{"$gt": now.UTC()},
	}
	update := bson.M{
		"$set":   bson.M{"password_hash": passwordHash, "updated_at": now.UTC()},
		"$unset": bson.M{"reset_token": "", "reset_expires_at": ""},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvalidOrExpiredToken
	}
	return nil
}

// EnsureIndexes creates the email and single-super-admin uniqueness indexes.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexUniqEmail).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
			Options: options.Index().
				SetName(indexUniqSuperAdmin).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"role": string(domain.RoleSuperAdmin)}),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// classifyDuplicate maps a duplicate-key error to the domain error of the
// index that rejected the write.
func classifyDuplicate(err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 && strings.Contains(e.Message, indexUniqSuperAdmin) {
				return domain.ErrConflict
			}
		}
	}
	if strings.Contains(err.Error(), indexUniqSuperAdmin) {
		return domain.ErrConflict
	}
	return domain.ErrDuplicateEmail
}
