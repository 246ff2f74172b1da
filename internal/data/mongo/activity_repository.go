package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/channel-escrow-market/internal/domain/activity"
)

const (
	// ActivityCollectionName is the name of the activity feed collection in MongoDB
	ActivityCollectionName = "activity_feed"
)

// ActivityRepository implements the activity.Repository interface for MongoDB
type ActivityRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewActivityRepository creates a new MongoDB activity repository
func NewActivityRepository(logger *slog.Logger, db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the (event_id, user_id) unique index and the feed
// ordering index.
func (r *ActivityRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(ActivityCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "occurred_at", Value: -1}},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create activity indexes", "error", err)
		return fmt.Errorf("failed to create activity indexes: %w", err)
	}
	return nil
}

// Record upserts feed items keyed on event and user, so replaying an event
// leaves a single item per user.
func (r *ActivityRepository) Record(ctx context.Context, items []*activity.Item) error {
	if len(items) == 0 {
		return nil
	}
	collection := r.db.Collection(ActivityCollectionName)

	models := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"event_id": item.EventID, "user_id": item.UserID}).
			SetReplacement(item).
			SetUpsert(true))
	}

	_, err := collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		r.logger.Error("Failed to record activity",
			"event_id", items[0].EventID,
			"error", err)
		return fmt.Errorf("failed to record activity: %w", err)
	}

	return nil
}

// GetByUserID retrieves a user's feed, newest first
func (r *ActivityRepository) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*activity.Item, error) {
	collection := r.db.Collection(ActivityCollectionName)

	filter := bson.M{"user_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get activity",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	defer cursor.Close(ctx)

	items := []*activity.Item{}
	if err := cursor.All(ctx, &items); err != nil {
		r.logger.Error("Failed to decode activity",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}

	return items, nil
}

// CountByUserID counts the feed items of a user
func (r *ActivityRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	collection := r.db.Collection(ActivityCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error("Failed to count activity",
			"user_id", userID,
			"error", err)
		return 0, fmt.Errorf("failed to count activity: %w", err)
	}

	return count, nil
}
