package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/access"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/repository"
)

// --- Service Interface ---
type AdminService interface {
	ListTrainers(ctx context.Context, caller access.Principal) ([]domain.Trainer, error)
	ListStudents(ctx context.Context, caller access.Principal) ([]domain.Student, error)
	WatchTrainers(ctx context.Context, caller access.Principal) (<-chan domain.TrainersSnapshot, error)
	// CreateTrainer provisions the trainer's identity, account and trainer profile.
	CreateTrainer(ctx context.Context, caller access.Principal, in TrainerInput) (*domain.Trainer, error)
	// DeleteTrainer removes the trainer and unassigns its students.
	DeleteTrainer(ctx context.Context, caller access.Principal, trainerID primitive.ObjectID) error
	// AssignStudent sets the student's trainerID. A zero trainerID means no trainer was selected.
	AssignStudent(ctx context.Context, caller access.Principal, trainerID, studentID primitive.ObjectID) (*domain.Student, error)
}

// --- Service Implementation ---

type adminService struct {
	provider    identity.Provider
	accountRepo repository.AccountRepository
	studentRepo repository.StudentRepository
	trainerRepo repository.TrainerRepository
	logger      *slog.Logger
}

// NewAdminService creates a new instance of adminService.
func NewAdminService(
	provider identity.Provider,
	accountRepo repository.AccountRepository,
	studentRepo repository.StudentRepository,
	trainerRepo repository.TrainerRepository,
	logger *slog.Logger,
) AdminService {
	return &adminService{
		provider:    provider,
		accountRepo: accountRepo,
		studentRepo: studentRepo,
		trainerRepo: trainerRepo,
		logger:      logger.With("service", "admin"),
	}
}

func (s *adminService) ListTrainers(ctx context.Context, caller access.Principal) ([]domain.Trainer, error) {
	if err := access.Allow(caller.Role, access.ActionRead, access.ResourceTrainer); err != nil {
		return nil, err
	}
	return s.trainerRepo.List(ctx)
}

func (s *adminService) ListStudents(ctx context.Context, caller access.Principal) ([]domain.Student, error) {
	if err := access.Allow(caller.Role, access.ActionRead, access.ResourceStudent); err != nil {
		return nil, err
	}
	if caller.Role != domain.RoleAdmin {
		return nil, access.ErrForbidden
	}
	return s.studentRepo.List(ctx)
}

func (s *adminService) WatchTrainers(ctx context.Context, caller access.Principal) (<-chan domain.TrainersSnapshot, error) {
	if err := access.Allow(caller.Role, access.ActionRead, access.ResourceTrainer); err != nil {
		return nil, err
	}
	return s.trainerRepo.Watch(ctx)
}

func (s *adminService) CreateTrainer(ctx context.Context, caller access.Principal, in TrainerInput) (*domain.Trainer, error) {
	if err := access.Allow(caller.Role, access.ActionCreate, access.ResourceTrainer); err != nil {
		return nil, err
	}
	age, err := in.validate()
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)

	ident, err := s.provider.SignUp(ctx, email, in.Password)
	if err != nil {
		if !errors.Is(err, identity.ErrEmailTaken) {
			s.logger.ErrorContext(ctx, "trainer sign-up failed", "error", err)
		}
		return nil, err
	}

	account := &domain.Account{ID: ident.ID, Name: name, Email: email, Role: domain.RoleTrainer}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		s.discardIdentity(ctx, ident.ID, err)
		return nil, err
	}
	trainer := &domain.Trainer{
		ID:           ident.ID,
		Name:         name,
		Email:        email,
		Age:          age,
		Phone:        strings.TrimSpace(in.Phone),
		Specialty:    strings.TrimSpace(in.Specialty),
		Availability: strings.TrimSpace(in.Availability),
	}
	if err := s.trainerRepo.Create(ctx, trainer); err != nil {
		if delErr := s.accountRepo.Delete(ctx, ident.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "rollback of trainer account failed", "trainerId", ident.ID.Hex(), "error", delErr)
		}
		s.discardIdentity(ctx, ident.ID, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "trainer created", "trainerId", trainer.ID.Hex(), "by", caller.ID.Hex())
	return trainer, nil
}

func (s *adminService) discardIdentity(ctx context.Context, id primitive.ObjectID, cause error) {
	s.logger.ErrorContext(ctx, "provisioning trainer failed", "trainerId", id.Hex(), "error", cause)
	if err := s.provider.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "removing trainer identity failed", "trainerId", id.Hex(), "error", err)
	}
}

func (s *adminService) DeleteTrainer(ctx context.Context, caller access.Principal, trainerID primitive.ObjectID) error {
	if err := access.Allow(caller.Role, access.ActionDelete, access.ResourceTrainer); err != nil {
		return err
	}
	if _, err := s.trainerRepo.GetByID(ctx, trainerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTrainerNotFound
		}
		return err
	}

	// Students first, so none is left pointing at a missing trainer.
	cleared, err := s.studentRepo.ClearTrainer(ctx, trainerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "unassigning students failed", "trainerId", trainerID.Hex(), "error", err)
		return err
	}
	if err := s.trainerRepo.Delete(ctx, trainerID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.ErrorContext(ctx, "deleting trainer failed", "trainerId", trainerID.Hex(), "error", err)
		return err
	}
	if err := s.accountRepo.Delete(ctx, trainerID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.ErrorContext(ctx, "deleting trainer account failed", "trainerId", trainerID.Hex(), "error", err)
		return err
	}
	if err := s.provider.Delete(ctx, trainerID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.ErrorContext(ctx, "deleting trainer identity failed", "trainerId", trainerID.Hex(), "error", err)
		return err
	}

	s.logger.InfoContext(ctx, "trainer deleted", "trainerId", trainerID.Hex(), "unassignedStudents", cleared, "by", caller.ID.Hex())
	return nil
}

func (s *adminService) AssignStudent(ctx context.Context, caller access.Principal, trainerID, studentID primitive.ObjectID) (*domain.Student, error) {
	if err := access.Allow(caller.Role, access.ActionUpdate, access.ResourceAssignment); err != nil {
		return nil, err
	}
	if trainerID.IsZero() {
		return nil, ErrTrainerNotSelected
	}

	if _, err := s.trainerRepo.GetByID(ctx, trainerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainerNotFound
		}
		return nil, err
	}
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if student.AssignedTo(trainerID) {
		return student, nil
	}

	if err := s.studentRepo.SetTrainer(ctx, studentID, trainerID); err != nil {
		s.logger.ErrorContext(ctx, "assigning student failed", "studentId", studentID.Hex(), "trainerId", trainerID.Hex(), "error", err)
		return nil, err
	}
	student.TrainerID = &trainerID
	s.logger.InfoContext(ctx, "student assigned", "studentId", studentID.Hex(), "trainerId", trainerID.Hex())
	return student, nil
}

// ProvisionAdmin creates an adminmaster identity and account. No in-app flow
// creates one; operators run it from the command line.
func ProvisionAdmin(ctx context.Context, provider identity.Provider, accountRepo repository.AccountRepository, in AdminInput) (*domain.Account, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	ident, err := provider.SignUp(ctx, email, in.Password)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{ID: ident.ID, Name: strings.TrimSpace(in.Name), Email: email, Role: domain.RoleAdmin}
	if err := accountRepo.Create(ctx, account); err != nil {
		if delErr := provider.Delete(ctx, ident.ID); delErr != nil {
			return nil, errors.Join(err, delErr)
		}
		return nil, err
	}
	return account, nil
}
