package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

// mongoCredentialRepository implements repository.CredentialRepository using MongoDB.
type mongoCredentialRepository struct {
	collection *mongo.Collection
}

// NewMongoCredentialRepository creates a new credential repository backed by MongoDB.
func NewMongoCredentialRepository(db *mongo.Database) repository.CredentialRepository {
	return &mongoCredentialRepository{
		collection: db.Collection(repository.CredentialCollection),
	}
}

// Create inserts a new credential. The email is stored lowercase.
func (r *mongoCredentialRepository) Create(ctx context.Context, cred *domain.Credential) (primitive.ObjectID, error) {
	if cred.Email == "" || cred.PasswordHash == "" {
		return primitive.NilObjectID, errors.New("credential email and password hash are required")
	}
	if cred.ID.IsZero() {
		cred.ID = primitive.NewObjectID()
	}
	cred.Email = strings.ToLower(cred.Email)

	result, err := r.collection.InsertOne(ctx, cred)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a credential by id.
func (r *mongoCredentialRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Credential, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail retrieves a credential by email, case-insensitively.
func (r *mongoCredentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *mongoCredentialRepository) findOne(ctx context.Context, filter bson.M) (*domain.Credential, error) {
	var cred domain.Credential
	err := r.collection.FindOne(ctx, filter).Decode(&cred)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *mongoCredentialRepository) UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.set(ctx, id, bson.M{"passwordHash": hash})
}

// RecordSignIn stores the time of the latest successful sign-in.
func (r *mongoCredentialRepository) RecordSignIn(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.set(ctx, id, bson.M{"lastSignInAt": at.UTC()})
}

func (r *mongoCredentialRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a credential.
func (r *mongoCredentialRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.collection, id)
}

// EnsureCredentialIndexes creates necessary indexes for the credentials collection.
func EnsureCredentialIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// deleteByID removes one document and reports ErrNotFound when nothing matched.
func deleteByID(ctx context.Context, collection *mongo.Collection, id primitive.ObjectID) error {
	result, err := collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// findAll runs a query and decodes every document into out.
func findAll(ctx context.Context, collection *mongo.Collection, filter interface{}, out interface{}, opts ...*options.FindOptions) error {
	cursor, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, out); err != nil {
		return err
	}
	return cursor.Err()
}
