package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
)

// MongoNotificationRepository implements the NotificationRepository interface
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoDB notification repository
func NewMongoNotificationRepository(db *mongo.Database) repository.NotificationRepository {
	collection := db.Collection("notifications")

	ctx := context.Background()

	// Unique dedup key makes CreateIfAbsent safe across instances
	dedupIndex := mongo.IndexModel{
		Keys:    bson.M{"dedupKey": 1},
		Options: options.Index().SetUnique(true),
	}

	// Passenger history, newest first
	historyIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "passengerId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}

	// Delivery sweep
	dueIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "deliveryAbandoned", Value: 1},
			{Key: "nextAttemptAt", Value: 1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		dedupIndex,
		historyIndex,
		dueIndex,
	})

	return &MongoNotificationRepository{
		collection: collection,
	}
}

// CreateIfAbsent inserts the record; a duplicate dedup key is not an error
func (r *MongoNotificationRepository) CreateIfAbsent(ctx context.Context, record *entity.NotificationRecord) (bool, error) {
	_, err := r.collection.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	return true, nil
}

// FindByID finds a notification by ID
func (r *MongoNotificationRepository) FindByID(ctx context.Context, id string) (*entity.NotificationRecord, error) {
	var n entity.NotificationRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NotFoundf("notification %q", id)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// FindByPassenger pages a passenger's history, newest first
func (r *MongoNotificationRepository) FindByPassenger(ctx context.Context, passengerID string, offset, limit int) ([]*entity.NotificationRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"passengerId": passengerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []*entity.NotificationRecord{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByPassenger returns total and unread counts
func (r *MongoNotificationRepository) CountByPassenger(ctx context.Context, passengerID string) (int64, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{"passengerId": passengerID})
	if err != nil {
		return 0, 0, err
	}
	unread, err := r.collection.CountDocuments(ctx, bson.M{
		"passengerId": passengerID,
		"status":      bson.M{"$ne": entity.NotificationRead},
	})
	if err != nil {
		return 0, 0, err
	}
	return total, unread, nil
}

// FindDue finds pending records whose next attempt is due, oldest first
func (r *MongoNotificationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.NotificationRecord, error) {
	filter := bson.M{
		"status":            entity.NotificationPending,
		"deliveryAbandoned": false,
		"nextAttemptAt":     bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "nextAttemptAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var due []*entity.NotificationRecord
	if err := cursor.All(ctx, &due); err != nil {
		return nil, err
	}
	return due, nil
}

// MarkSent moves a pending record to sent
func (r *MongoNotificationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": entity.NotificationPending},
		bson.M{"$set": bson.M{"status": entity.NotificationSent, "sentAt": sentAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark sent: %w", err)
	}
	if result.MatchedCount == 0 {
		// Already read (or sent); only a missing record is an error.
		return r.exists(ctx, id)
	}
	return nil
}

// MarkRead moves a record to read; reading twice is a no-op
func (r *MongoNotificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$ne": entity.NotificationRead}},
		bson.M{"$set": bson.M{"status": entity.NotificationRead, "readAt": readAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.exists(ctx, id)
	}
	return nil
}

// RecordDeliveryFailure updates the delivery bookkeeping of a record
func (r *MongoNotificationRepository) RecordDeliveryFailure(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time, abandoned bool) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"deliveryAttempts":  attempts,
			"lastDeliveryError": lastError,
			"nextAttemptAt":     nextAttemptAt,
			"deliveryAbandoned": abandoned,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery failure: %w", err)
	}
	if result.MatchedCount == 0 {
		return errors.NotFoundf("notification %q", id)
	}
	return nil
}

func (r *MongoNotificationRepository) exists(ctx context.Context, id string) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFoundf("notification %q", id)
	}
	return nil
}
