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

// mongoInjuryRepository implements repository.InjuryRepository
type mongoInjuryRepository struct {
	collection *mongo.Collection
}

// NewMongoInjuryRepository creates a new Injury repository backed by MongoDB.
func NewMongoInjuryRepository(db *mongo.Database) repository.InjuryRepository {
	return &mongoInjuryRepository{
		collection: db.Collection(repository.InjuryCollection),
	}
}

// Create inserts a new injury.
func (r *mongoInjuryRepository) Create(ctx context.Context, injury *domain.Injury) (primitive.ObjectID, error) {
	if injury.UserID.IsZero() || injury.Name == "" {
		return primitive.NilObjectID, errors.New("injury requires userID and name")
	}
	injury.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	injury.CreatedAt = now
	injury.UpdatedAt = now
	if injury.Comments == nil {
		injury.Comments = []string{}
	}

	result, err := r.collection.InsertOne(ctx, injury)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted injury ID")
	}
	return insertedID, nil
}

// GetByID retrieves an injury by its ID.
func (r *mongoInjuryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Injury, error) {
	var injury domain.Injury
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&injury)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &injury, nil
}

// ListByUserID returns the injuries of one student, newest first.
func (r *mongoInjuryRepository) ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Injury, error) {
	injuries := []domain.Injury{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	err := findAll(ctx, r.collection, bson.M{"userID": userID}, &injuries, findOptions)
	return injuries, err
}

// Update merge-updates the non-nil fields of update.
func (r *mongoInjuryRepository) Update(ctx context.Context, id primitive.ObjectID, update repository.InjuryUpdate) error {
	fields := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	return r.updateOne(ctx, id, bson.M{"$set": fields})
}

// AppendComment pushes a comment to the end of the comments list.
func (r *mongoInjuryRepository) AppendComment(ctx context.Context, id primitive.ObjectID, comment string) error {
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.updateOne(ctx, id, update)
}

func (r *mongoInjuryRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureInjuryIndexes creates necessary indexes for the injuries collection.
func EnsureInjuryIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userID", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index(),
	})
	return err
}
