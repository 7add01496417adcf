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

const collectionDevices = "devices"

type DeviceRepository struct {
	col *mongo.Collection
}

func NewDeviceRepository(db *mongo.Database) *DeviceRepository {
	return &DeviceRepository{col: db.Collection(collectionDevices)}
}

func (r *DeviceRepository) FindByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d domain.Device
	if err := r.col.FindOne(ctx, bson.M{"device_id": deviceID}).Decode(&d); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("find device: %w", err)
	}
	return &d, nil
}

// List returns devices newest first. A nil deviceIDs lists every device; an
// empty non-nil slice matches nothing.
func (r *DeviceRepository) List(ctx context.Context, deviceIDs []string) ([]*domain.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if deviceIDs != nil {
		filter["device_id"] = bson.M{"$in": deviceIDs}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer cursor.Close(ctx)

	devices := []*domain.Device{}
	if err := cursor.All(ctx, &devices); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}
	return devices, nil
}

func (r *DeviceRepository) Create(ctx context.Context, d *domain.Device) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateDevice
		}
		return fmt.Errorf("insert device: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		d.ID = oid.Hex()
	}
	return nil
}

func (r *DeviceRepository) Update(ctx context.Context, deviceID string, in ports.UpdateDeviceInput, now time.Time) (*domain.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d domain.Device
	err := r.col.FindOneAndUpdate(ctx, bson.M{"device_id": deviceID}, deviceUpdate(in, now), opts).Decode(&d)
	if err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("update device: %w", err)
	}
	return &d, nil
}

func deviceUpdate(in ports.UpdateDeviceInput, now time.Time) bson.M {
	set := bson.M{"updated_at": now.UTC()}
	setIf := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	setIf("device_name", in.DeviceName)
	setIf("device_type", in.DeviceType)
	setIf("os_version", in.OSVersion)
	setIf("manufacturer", in.Manufacturer)
	setIf("status", in.Status)
	setIf("child_id", in.ChildID)
	if in.LastConnected != nil {
		set["last_connected"] = in.LastConnected.UTC()
	}
	if in.BatteryLevel != nil {
		set["battery_level"] = *in.BatteryLevel
	}
	if in.InstalledApps != nil {
		set["installed_apps"] = in.InstalledApps
	}
	if in.Settings != nil {
		set["settings"] = *in.Settings
	}
	return bson.M{"$set": set}
}

func (r *DeviceRepository) Delete(ctx context.Context, deviceID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"device_id": deviceID})
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

// EnsureIndexes creates the unique device_id index.
func (r *DeviceRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "device_id", Value: 1}},
		Options: options.Index().SetName("uniq_device_id").SetUnique(true),
	})
	return err
}
