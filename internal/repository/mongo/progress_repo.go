package mongo

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

// mongoProgressRepository implements repository.ProgressRepository.
// Documents are keyed by the student id, so there is at most one per student.
type mongoProgressRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoProgressRepository creates a new Progress repository backed by MongoDB.
func NewMongoProgressRepository(db *mongo.Database, logger *slog.Logger) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(repository.ProgressCollection),
		logger:     logger,
	}
}

// Get retrieves the progress document of a student.
func (r *mongoProgressRepository) Get(ctx context.Context, userID primitive.ObjectID) (*domain.Progress, error) {
	var progress domain.Progress
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if progress.CompletedDates == nil {
		progress.CompletedDates = map[string]domain.DayMark{}
	}
	return &progress, nil
}

// Update sets the non-nil series, creating the document if needed.
func (r *mongoProgressRepository) Update(ctx context.Context, userID primitive.ObjectID, update repository.ProgressUpdate) error {
	fields := bson.M{}
	if update.WeeklyProgress != nil {
		fields["weeklyProgress"] = *update.WeeklyProgress
	}
	if update.MonthlyGoals != nil {
		fields["monthlyGoals"] = *update.MonthlyGoals
	}
	if update.RoutineComparison != nil {
		fields["routineComparison"] = *update.RoutineComparison
	}
	if len(fields) == 0 {
		return nil
	}
	return r.upsert(ctx, userID, fields)
}

// MarkDate sets completedDates[date], creating the document if needed.
func (r *mongoProgressRepository) MarkDate(ctx context.Context, userID primitive.ObjectID, date string, mark domain.DayMark) error {
	return r.upsert(ctx, userID, bson.M{"completedDates." + date: mark})
}

func (r *mongoProgressRepository) upsert(ctx context.Context, userID primitive.ObjectID, fields bson.M) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": fields}, options.Update().SetUpsert(true))
	return err
}

// Watch opens a change stream filtered to one progress document and re-reads it
// on every event. Change streams require a replica set.
func (r *mongoProgressRepository) Watch(ctx context.Context, userID primitive.ObjectID) (<-chan domain.ProgressSnapshot, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: userID}}}},
	}
	stream, err := r.collection.Watch(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.ProgressSnapshot, 1)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		emit := func() bool {
			return sendSnapshot(ctx, out, r.snapshot(ctx, userID))
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
			r.logger.Error("progress change stream failed", "userID", userID.Hex(), "error", err)
			sendSnapshot(ctx, out, domain.ProgressSnapshot{Err: err})
		}
	}()
	return out, nil
}

func (r *mongoProgressRepository) snapshot(ctx context.Context, userID primitive.ObjectID) domain.ProgressSnapshot {
	progress, err := r.Get(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.ProgressSnapshot{Progress: domain.NewProgress(userID)}
	case err != nil:
		return domain.ProgressSnapshot{Err: err}
	}
	return domain.ProgressSnapshot{Progress: progress, Exists: true}
}
