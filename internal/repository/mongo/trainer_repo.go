package mongo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

// mongoTrainerRepository implements repository.TrainerRepository using MongoDB.
type mongoTrainerRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoTrainerRepository creates a new trainer repository backed by MongoDB.
func NewMongoTrainerRepository(db *mongo.Database, logger *slog.Logger) repository.TrainerRepository {
	return &mongoTrainerRepository{
		collection: db.Collection(repository.TrainerCollection),
		logger:     logger,
	}
}

// Create inserts a trainer profile under the account id already set on it.
func (r *mongoTrainerRepository) Create(ctx context.Context, trainer *domain.Trainer) error {
	if trainer.ID.IsZero() || trainer.Name == "" {
		return errors.New("trainer id and name are required")
	}
	now := time.Now().UTC()
	trainer.CreatedAt = now
	trainer.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, trainer); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID retrieves a trainer profile.
func (r *mongoTrainerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Trainer, error) {
	var trainer domain.Trainer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trainer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &trainer, nil
}

// List returns every trainer, sorted by name.
func (r *mongoTrainerRepository) List(ctx context.Context) ([]domain.Trainer, error) {
	trainers := []domain.Trainer{}
	err := findAll(ctx, r.collection, bson.M{}, &trainers, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	return trainers, err
}

// Delete removes a trainer profile.
func (r *mongoTrainerRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

// Watch opens a change stream on the trainers collection and re-lists the
// collection on every event. Change streams require a replica set.
func (r *mongoTrainerRepository) Watch(ctx context.Context) (<-chan domain.TrainersSnapshot, error) {
	stream, err := r.collection.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, err
	}

	out := make(chan domain.TrainersSnapshot, 1)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		emit := func() bool {
			trainers, err := r.List(ctx)
			return sendSnapshot(ctx, out, domain.TrainersSnapshot{Trainers: trainers, Err: err})
		}

		if !emit() {
			return
		}
		for stream.Next(ctx) {
			if !emit() {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			r.logger.Error("trainers change stream failed", "error", err)
			sendSnapshot(ctx, out, domain.TrainersSnapshot{Err: err})
		}
	}()
	return out, nil
}

// sendSnapshot delivers v unless ctx is done first.
func sendSnapshot[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
