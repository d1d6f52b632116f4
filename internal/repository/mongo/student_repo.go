package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

// mongoStudentRepository implements repository.StudentRepository using MongoDB.
type mongoStudentRepository struct {
	collection *mongo.Collection
}

// NewMongoStudentRepository creates a new student repository backed by MongoDB.
func NewMongoStudentRepository(db *mongo.Database) repository.StudentRepository {
	return &mongoStudentRepository{
		collection: db.Collection(repository.StudentCollection),
	}
}

// Create inserts a student profile under the account id already set on it.
func (r *mongoStudentRepository) Create(ctx context.Context, student *domain.Student) error {
	if student.ID.IsZero() {
		return errors.New("student id is required")
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, student); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID retrieves a student profile.
func (r *mongoStudentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Student, error) {
	var student domain.Student
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&student)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &student, nil
}

// List returns every student, sorted by name.
func (r *mongoStudentRepository) List(ctx context.Context) ([]domain.Student, error) {
	students := []domain.Student{}
	err := findAll(ctx, r.collection, bson.M{}, &students, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	return students, err
}

// ListByTrainerID returns the students whose trainerID equals trainerID.
func (r *mongoStudentRepository) ListByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Student, error) {
	students := []domain.Student{}
	err := findAll(ctx, r.collection, bson.M{"trainerID": trainerID}, &students, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	return students, err
}

// SetTrainer sets the trainerID field without touching the rest of the document.
func (r *mongoStudentRepository) SetTrainer(ctx context.Context, studentID, trainerID primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"trainerID": trainerID,
			"updatedAt": time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": studentID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	// ModifiedCount is 0 when the student was already assigned to this trainer.
	return nil
}

// ClearTrainer unassigns every student of trainerID.
func (r *mongoStudentRepository) ClearTrainer(ctx context.Context, trainerID primitive.ObjectID) (int64, error) {
	update := bson.M{
		"$unset": bson.M{"trainerID": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateMany(ctx, bson.M{"trainerID": trainerID}, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsureStudentIndexes creates necessary indexes for the students collection.
func EnsureStudentIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "trainerID", Value: 1}}, // Index for finding students by trainer
		Options: options.Index().SetSparse(true),      // Sparse because unassigned students have no trainerID
	})
	return err
}
