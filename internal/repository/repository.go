package repository

import (
	"alcyxob/fitness-coach/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound = RepositoryError("not found")
	ErrConflict = RepositoryError("document already exists")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Collection names shared by every store implementation.
const (
	CredentialCollection = "credentials"
	AccountCollection    = "users"
	StudentCollection    = "students"
	TrainerCollection    = "trainers"
	RoutineCollection    = "routines"
	InjuryCollection     = "injuries"
	ProgressCollection   = "progress"
)

// Repositories groups one store's repositories.
type Repositories struct {
	Credentials CredentialRepository
	Accounts    AccountRepository
	Students    StudentRepository
	Trainers    TrainerRepository
	Routines    RoutineRepository
	Injuries    InjuryRepository
	Progress    ProgressRepository
}

// CredentialRepository stores identity provider records.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Credential, error)
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
	UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
	RecordSignIn(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AccountRepository stores profile documents (users collection).
// Create uses the ID already set on the account.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Account, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// StudentRepository stores student profiles.
type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Student, error)
	List(ctx context.Context) ([]domain.Student, error)
	ListByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Student, error)
	// SetTrainer merge-updates trainerID only.
	SetTrainer(ctx context.Context, studentID, trainerID primitive.ObjectID) error
	// ClearTrainer unsets trainerID on every student assigned to trainerID.
	ClearTrainer(ctx context.Context, trainerID primitive.ObjectID) (int64, error)
}

// TrainerRepository stores trainer profiles.
type TrainerRepository interface {
	Create(ctx context.Context, trainer *domain.Trainer) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Trainer, error)
	List(ctx context.Context) ([]domain.Trainer, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// Watch delivers the full trainer list now and after every change until ctx is done.
	Watch(ctx context.Context) (<-chan domain.TrainersSnapshot, error)
}

// RoutineRepository stores routines.
type RoutineRepository interface {
	Create(ctx context.Context, routine *domain.Routine) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error)
	ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Routine, error)
	// Update replaces date and exercises of an existing routine.
	Update(ctx context.Context, routine *domain.Routine) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// InjuryUpdate is a merge-update of injury fields. Nil fields are left untouched.
type InjuryUpdate struct {
	Name        *string
	Description *string
}

// InjuryRepository stores injuries.
type InjuryRepository interface {
	Create(ctx context.Context, injury *domain.Injury) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Injury, error)
	ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Injury, error)
	Update(ctx context.Context, id primitive.ObjectID, update InjuryUpdate) error
	AppendComment(ctx context.Context, id primitive.ObjectID, comment string) error
}

// ProgressUpdate is a merge-update of progress series. Nil fields are left untouched.
type ProgressUpdate struct {
	WeeklyProgress    *[7]float64
	MonthlyGoals      *[3]float64
	RoutineComparison *[4]float64
}

// ProgressRepository stores one progress document per student, keyed by the student id.
type ProgressRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.Progress, error)
	// Update upserts the document and sets only the non-nil series.
	Update(ctx context.Context, userID primitive.ObjectID, update ProgressUpdate) error
	// MarkDate upserts the document and sets completedDates[date].
	MarkDate(ctx context.Context, userID primitive.ObjectID, date string, mark domain.DayMark) error
	// Watch delivers the document now and after every change until ctx is done.
	Watch(ctx context.Context, userID primitive.ObjectID) (<-chan domain.ProgressSnapshot, error)
}
