package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/access"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/storage"
)

// StudentDetails is a trainer's view of one assigned student.
type StudentDetails struct {
	Student  *domain.Student `json:"student"`
	Progress *ProgressView   `json:"progress"`
}

// --- Service Interface ---
type TrainerService interface {
	// Student Management
	ListStudents(ctx context.Context, caller access.Principal) ([]domain.Student, error)
	StudentDetails(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) (*StudentDetails, error)

	// Routine Management
	ListRoutines(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) ([]domain.Routine, error)
	CreateRoutine(ctx context.Context, caller access.Principal, studentID primitive.ObjectID, in RoutineInput) (*domain.Routine, error)
	UpdateRoutine(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, in RoutineInput) (*domain.Routine, error)
	DeleteRoutine(ctx context.Context, caller access.Principal, routineID primitive.ObjectID) error
	RequestVideoUpload(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, index int, fileName, contentType string) (*VideoUploadResponse, error)
	AttachVideo(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, index int, objectKey string) (*domain.Routine, error)
	ExerciseVideoURL(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, index int) (string, error)

	// Injury Management
	ListInjuries(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) ([]domain.Injury, error)
	CreateInjury(ctx context.Context, caller access.Principal, studentID primitive.ObjectID, in InjuryInput) (*domain.Injury, error)
	UpdateInjury(ctx context.Context, caller access.Principal, injuryID primitive.ObjectID, update repository.InjuryUpdate) (*domain.Injury, error)
	CommentOnInjury(ctx context.Context, caller access.Principal, injuryID primitive.ObjectID, comment string) (*domain.Injury, error)

	// Progress
	GetProgress(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) (*ProgressView, error)
	WatchProgress(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) (<-chan domain.ProgressSnapshot, error)
}

// --- Service Implementation ---

type trainerService struct {
	studentRepo repository.StudentRepository
	records     *records
	videos      *exerciseVideos
	logger      *slog.Logger
}

// NewTrainerService creates a new instance of trainerService.
func NewTrainerService(
	studentRepo repository.StudentRepository,
	routineRepo repository.RoutineRepository,
	injuryRepo repository.InjuryRepository,
	progressRepo repository.ProgressRepository,
	fileStorage storage.FileStorage,
	scope *access.Scope,
	logger *slog.Logger,
) TrainerService {
	logger = logger.With("service", "trainer")
	rec := &records{
		routineRepo:  routineRepo,
		injuryRepo:   injuryRepo,
		progressRepo: progressRepo,
		scope:        scope,
		logger:       logger,
		now:          time.Now,
	}
	return &trainerService{
		studentRepo: studentRepo,
		records:     rec,
		videos:      &exerciseVideos{records: rec, fileStorage: fileStorage, logger: logger},
		logger:      logger,
	}
}

// === Student Management ===

// ListStudents returns exactly the students whose trainerID is the caller.
func (s *trainerService) ListStudents(ctx context.Context, caller access.Principal) ([]domain.Student, error) {
	if err := access.Allow(caller.Role, access.ActionRead, access.ResourceStudent); err != nil {
		return nil, err
	}
	students, err := s.studentRepo.ListByTrainerID(ctx, caller.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing students failed", "trainerId", caller.ID.Hex(), "error", err)
		return nil, err
	}
	owned := students[:0]
	for _, st := range students {
		if st.AssignedTo(caller.ID) {
			owned = append(owned, st)
		}
	}
	return owned, nil
}

func (s *trainerService) StudentDetails(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) (*StudentDetails, error) {
	if err := s.records.scope.AuthorizeOwner(ctx, caller, access.ActionRead, access.ResourceStudent, studentID); err != nil {
		return nil, err
	}
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	progress, err := s.records.progress(ctx, caller, studentID)
	if err != nil {
		return nil, err
	}
	return &StudentDetails{Student: student, Progress: progress}, nil
}

// === Routine Management ===

func (s *trainerService) ListRoutines(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) ([]domain.Routine, error) {
	return s.records.listRoutines(ctx, caller, studentID)
}

func (s *trainerService) CreateRoutine(ctx context.Context, caller access.Principal, studentID primitive.ObjectID, in RoutineInput) (*domain.Routine, error) {
	// 1. Validate Inputs
	date := in.Date
	if date == "" {
		date = s.records.today()
	}
	trimExerciseNames(in.Exercises)
	if err := check(in); err != nil {
		return nil, err
	}

	// 2. Check the student is assigned to this trainer
	if err := s.records.scope.AuthorizeOwner(ctx, caller, access.ActionCreate, access.ResourceRoutine, studentID); err != nil {
		return nil, err
	}

	// 3. Save
	routine := &domain.Routine{
		UserID:    studentID,
		Date:      date,
		Exercises: in.Exercises,
		CreatedBy: caller.ID,
	}
	id, err := s.records.routineRepo.Create(ctx, routine)
	if err != nil {
		s.logger.ErrorContext(ctx, "creating routine failed", "studentId", studentID.Hex(), "error", err)
		return nil, err
	}
	routine.ID = id
	s.records.markCompletedDay(ctx, routine)
	return routine, nil
}

// UpdateRoutine replaces date and exercises. Videos stay attached to exercises
// that keep their position and name.
func (s *trainerService) UpdateRoutine(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, in RoutineInput) (*domain.Routine, error) {
	trimExerciseNames(in.Exercises)
	if err := check(in); err != nil {
		return nil, err
	}
	routine, err := s.records.routine(ctx, caller, access.ActionUpdate, access.ResourceRoutine, routineID)
	if err != nil {
		return nil, err
	}
	if in.Date == "" {
		in.Date = routine.Date
	}

	exercises := make([]domain.ExerciseEntry, len(in.Exercises))
	kept := map[string]bool{}
	for i, ex := range in.Exercises {
		if i < len(routine.Exercises) && routine.Exercises[i].Name == ex.Name {
			ex.VideoKey = routine.Exercises[i].VideoKey
			kept[ex.VideoKey] = true
		}
		exercises[i] = ex
	}
	dropped := &domain.Routine{}
	for _, ex := range routine.Exercises {
		if ex.VideoKey != "" && !kept[ex.VideoKey] {
			dropped.Exercises = append(dropped.Exercises, ex)
		}
	}

	routine.Date = in.Date
	routine.Exercises = exercises
	if err := s.records.routineRepo.Update(ctx, routine); err != nil {
		s.logger.ErrorContext(ctx, "updating routine failed", "routineId", routineID.Hex(), "error", err)
		return nil, err
	}
	s.videos.removeAll(ctx, dropped)
	s.records.markCompletedDay(ctx, routine)
	return routine, nil
}

func (s *trainerService) DeleteRoutine(ctx context.Context, caller access.Principal, routineID primitive.ObjectID) error {
	routine, err := s.records.routine(ctx, caller, access.ActionDelete, access.ResourceRoutine, routineID)
	if err != nil {
		return err
	}
	if err := s.records.routineRepo.Delete(ctx, routineID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoutineNotFound
		}
		s.logger.ErrorContext(ctx, "deleting routine failed", "routineId", routineID.Hex(), "error", err)
		return err
	}
	s.videos.removeAll(ctx, routine)
	return nil
}

func (s *trainerService) RequestVideoUpload(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, index int, fileName, contentType string) (*VideoUploadResponse, error) {
	return s.videos.uploadURL(ctx, caller, routineID, index, fileName, contentType)
}

func (s *trainerService) AttachVideo(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, index int, objectKey string) (*domain.Routine, error) {
	return s.videos.attach(ctx, caller, routineID, index, objectKey)
}

func (s *trainerService) ExerciseVideoURL(ctx context.Context, caller access.Principal, routineID primitive.ObjectID, index int) (string, error) {
	return s.videos.downloadURL(ctx, caller, routineID, index)
}

// === Injury Management ===

func (s *trainerService) ListInjuries(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) ([]domain.Injury, error) {
	return s.records.listInjuries(ctx, caller, studentID)
}

func (s *trainerService) CreateInjury(ctx context.Context, caller access.Principal, studentID primitive.ObjectID, in InjuryInput) (*domain.Injury, error) {
	return s.records.createInjury(ctx, caller, studentID, in)
}

func (s *trainerService) UpdateInjury(ctx context.Context, caller access.Principal, injuryID primitive.ObjectID, update repository.InjuryUpdate) (*domain.Injury, error) {
	if update.Name == nil && update.Description == nil {
		return nil, invalid("", "Nothing to update.")
	}
	if update.Name != nil {
		if err := check(injuryName{Name: strings.TrimSpace(*update.Name)}); err != nil {
			return nil, err
		}
	}
	if _, err := s.records.injury(ctx, caller, access.ActionUpdate, access.ResourceInjury, injuryID); err != nil {
		return nil, err
	}
	if err := s.records.injuryRepo.Update(ctx, injuryID, update); err != nil {
		s.logger.ErrorContext(ctx, "updating injury failed", "injuryId", injuryID.Hex(), "error", err)
		return nil, err
	}
	return s.records.injuryRepo.GetByID(ctx, injuryID)
}

func (s *trainerService) CommentOnInjury(ctx context.Context, caller access.Principal, injuryID primitive.ObjectID, comment string) (*domain.Injury, error) {
	return s.records.comment(ctx, caller, injuryID, comment)
}

// === Progress ===

func (s *trainerService) GetProgress(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) (*ProgressView, error) {
	return s.records.progress(ctx, caller, studentID)
}

func (s *trainerService) WatchProgress(ctx context.Context, caller access.Principal, studentID primitive.ObjectID) (<-chan domain.ProgressSnapshot, error) {
	return s.records.watchProgress(ctx, caller, studentID)
}
