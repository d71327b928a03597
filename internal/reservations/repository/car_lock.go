package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"fleetbook/pkg/config"
	"fleetbook/pkg/model"
)

const LockCollectionName = "Car_locks"

// CarLockRepository provides operations for per-car advisory locks.
type CarLockRepository interface {
	Create(ctx context.Context, lock *model.CarLock) (*model.CarLock, error)
	Delete(ctx context.Context, lockID string) error
}

type mongoCarLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewCarLockRepository(cfg *config.Config) CarLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCarLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

// Returns duplicate key error if lock already exists
func (r *mongoCarLockRepository) Create(ctx context.Context, lock *model.CarLock) (*model.CarLock, error) {
	lock.CreatedAt = time.Now()
	lock.ExpiresAt = lock.CreatedAt.Add(r.cfg.CarLockTTL)

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		return nil, err
	}

	return lock, nil
}

// Delete releases an advisory lock
func (r *mongoCarLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
