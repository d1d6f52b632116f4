package mongo

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"alcyxob/fitness-coach/internal/repository"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection.
	// The initial connection might have succeeded while the server is unresponsive.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection.
// Failures are logged and do not stop the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *slog.Logger) {
	ensure := map[string]func(context.Context, *mongo.Collection) error{
		repository.CredentialCollection: EnsureCredentialIndexes,
		repository.StudentCollection:    EnsureStudentIndexes,
		repository.RoutineCollection:    EnsureRoutineIndexes,
		repository.InjuryCollection:     EnsureInjuryIndexes,
	}
	for name, fn := range ensure {
		if err := fn(ctx, db.Collection(name)); err != nil {
			logger.Warn("failed to create indexes", "collection", name, "error", err)
		}
	}
}

// NewRepositories builds every repository on db.
func NewRepositories(db *mongo.Database, logger *slog.Logger) *repository.Repositories {
	return &repository.Repositories{
		Credentials: NewMongoCredentialRepository(db),
		Accounts:    NewMongoAccountRepository(db),
		Students:    NewMongoStudentRepository(db),
		Trainers:    NewMongoTrainerRepository(db, logger),
		Routines:    NewMongoRoutineRepository(db),
		Injuries:    NewMongoInjuryRepository(db),
		Progress:    NewMongoProgressRepository(db, logger),
	}
}
