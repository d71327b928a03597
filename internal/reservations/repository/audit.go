package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fleetbook/pkg/config"
	"fleetbook/pkg/model"
)

const LogCollectionName = "Reservation_logs"

// AuditLogRepository records reservation lifecycle events. The collection is
// append-only: nothing in the service updates or deletes log documents.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *model.ReservationLog) error
	FindByReservationID(ctx context.Context, reservationID string) ([]*model.ReservationLog, error)
}

type mongoAuditLogRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewAuditLogRepository(cfg *config.Config) AuditLogRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAuditLogRepository{
		cfg:        cfg,
		collection: db.Collection(LogCollectionName),
	}
}

func (r *mongoAuditLogRepository) Append(ctx context.Context, entry *model.ReservationLog) error {
	entry.LogDate = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to append reservation log: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAuditLogRepository) FindByReservationID(ctx context.Context, reservationID string) ([]*model.ReservationLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "log_date", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"reservation_id": reservationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []*model.ReservationLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode reservation logs: %w", err)
	}

	return logs, nil
}
