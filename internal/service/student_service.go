package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/access"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/storage"
)

// --- Service Interface ---
type StudentService interface {
	Profile(ctx context.Context, caller access.Principal) (*domain.Student, error)

	// Routines
	ListRoutines(ctx context.Context, caller access.Principal) ([]domain.Routine, error)
	GetRoutine(ctx context.Context, caller access.Principal, routineID primitive.ObjectID) (*domain.Routine, error)
	// SaveRoutineProgress stores a new routine dated today. Saving twice on the same day keeps both.
	SaveRoutineProgress(ctx context.Context, caller access.Principal, exercises []domain.ExerciseEntry) (*domain.Routine, error)
	UpdateRoutineCompletion(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, updates []CompletionUpdate) (*domain.Routine, error)
	ExerciseVideoURL(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, index int) (string, error)

	// Injuries
	ListInjuries(ctx context.Context, caller access.Principal) ([]domain.Injury, error)
	ReportInjury(ctx context.Context, caller access.Principal, in InjuryInput) (*domain.Injury, error)
	CommentOnInjury(ctx context.Context, caller access.Principal, injuryID primitive.ObjectID, comment string) (*domain.Injury, error)

	// Progress
	GetProgress(ctx context.Context, caller access.Principal) (*ProgressView, error)
	UpdateProgress(ctx context.Context, caller access.Principal, update repository.ProgressUpdate) (*ProgressView, error)
	WatchProgress(ctx context.Context, caller access.Principal) (<-chan domain.ProgressSnapshot, error)
}

// --- Service Implementation ---

type studentService struct {
	studentRepo repository.StudentRepository
	records     *records
	videos      *exerciseVideos
	logger      *slog.Logger
}

// NewStudentService creates a new instance of studentService.
func NewStudentService(
	studentRepo repository.StudentRepository,
	routineRepo repository.RoutineRepository,
	injuryRepo repository.InjuryRepository,
	progressRepo repository.ProgressRepository,
	fileStorage storage.FileStorage,
	scope *access.Scope,
	logger *slog.Logger,
) StudentService {
	logger = logger.With("service", "student")
	rec := &records{
		routineRepo:  routineRepo,
		injuryRepo:   injuryRepo,
		progressRepo: progressRepo,
		scope:        scope,
		logger:       logger,
		now:          time.Now,
	}
	return &studentService{
		studentRepo: studentRepo,
		records:     rec,
		videos:      &exerciseVideos{records: rec, fileStorage: fileStorage, logger: logger},
		logger:      logger,
	}
}

func (s *studentService) Profile(ctx context.Context, caller access.Principal) (*domain.Student, error) {
	if err := s.records.scope.AuthorizeOwner(ctx, caller, access.ActionRead, access.ResourceStudent, caller.ID); err != nil {
		return nil, err
	}
	student, err := s.studentRepo.GetByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

func (s *studentService) ListRoutines(ctx context.Context, caller access.Principal) ([]domain.Routine, error) {
	return s.records.listRoutines(ctx, caller, caller.ID)
}

func (s *studentService) GetRoutine(ctx context.Context, caller access.Principal, routineID primitive.ObjectID) (*domain.Routine, error) {
	return s.records.routine(ctx, caller, access.ActionRead, access.ResourceRoutine, routineID)
}

func (s *studentService) SaveRoutineProgress(ctx context.Context, caller access.Principal, exercises []domain.ExerciseEntry) (*domain.Routine, error) {
	if err := validateExercises(exercises); err != nil {
		return nil, err
	}
	if err := s.records.scope.AuthorizeOwner(ctx, caller, access.ActionCreate, access.ResourceRoutine, caller.ID); err != nil {
		return nil, err
	}

	routine := &domain.Routine{
		UserID:    caller.ID,
		Date:      s.records.today(),
		Exercises: exercises,
		CreatedBy: caller.ID,
	}
	id, err := s.records.routineRepo.Create(ctx, routine)
	if err != nil {
		s.logger.ErrorContext(ctx, "saving routine failed", "studentId", caller.ID.Hex(), "error", err)
		return nil, err
	}
	routine.ID = id
	s.records.markCompletedDay(ctx, routine)
	return routine, nil
}

func (s *studentService) UpdateRoutineCompletion(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, updates []CompletionUpdate) (*domain.Routine, error) {
	if err := check(completionUpdates{Updates: updates}); err != nil {
		return nil, err
	}
	routine, err := s.records.routine(ctx, caller, access.ActionUpdate, access.ResourceRoutineCompletion, routineID)
	if err != nil {
		return nil, err
	}
	for _, u := range updates {
		exercise, err := exerciseAt(routine, u.Index)
		if err != nil {
			return nil, err
		}
		exercise.Completed = u.Completed
		exercise.Note = u.Note
	}
	if err := s.records.routineRepo.Update(ctx, routine); err != nil {
		s.logger.ErrorContext(ctx, "updating completion failed", "routineId", routineID.Hex(), "error", err)
		return nil, err
	}
	s.records.markCompletedDay(ctx, routine)
	return routine, nil
}

func (s *studentService) ExerciseVideoURL(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, index int) (string, error) {
	return s.videos.downloadURL(ctx, caller, routineID, index)
}

func (s *studentService) ListInjuries(ctx context.Context, caller access.Principal) ([]domain.Injury, error) {
	return s.records.listInjuries(ctx, caller, caller.ID)
}

func (s *studentService) ReportInjury(ctx context.Context, caller access.Principal, in InjuryInput) (*domain.Injury, error) {
	return s.records.createInjury(ctx, caller, caller.ID, in)
}

func (s *studentService) CommentOnInjury(ctx context.Context, caller access.Principal, injuryID primitive.ObjectID, comment string) (*domain.Injury, error) {
	return s.records.comment(ctx, caller, injuryID, comment)
}

func (s *studentService) GetProgress(ctx context.Context, caller access.Principal) (*ProgressView, error) {
	return s.records.progress(ctx, caller, caller.ID)
}

func (s *studentService) UpdateProgress(ctx context.Context, caller access.Principal, update repository.ProgressUpdate) (*ProgressView, error) {
	if update.WeeklyProgress == nil && update.MonthlyGoals == nil && update.RoutineComparison == nil {
		return nil, invalid("", "Nothing to update.")
	}
	if err := s.records.scope.AuthorizeOwner(ctx, caller, access.ActionUpdate, access.ResourceProgress, caller.ID); err != nil {
		return nil, err
	}
	if err := s.records.progressRepo.Update(ctx, caller.ID, update); err != nil {
		s.logger.ErrorContext(ctx, "updating progress failed", "studentId", caller.ID.Hex(), "error", err)
		return nil, err
	}
	return s.records.progress(ctx, caller, caller.ID)
}

func (s *studentService) WatchProgress(ctx context.Context, caller access.Principal) (<-chan domain.ProgressSnapshot, error) {
	return s.records.watchProgress(ctx, caller, caller.ID)
}
