package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/access"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

// ProgressView is a student's progress record. Exists is false when no
// document has been written yet and the zero-valued record is shown.
type ProgressView struct {
	Progress *domain.Progress `json:"progress"`
	Exists   bool             `json:"exists"`
}

// CompletionUpdate sets the completed flag and note of one exercise by index.
type CompletionUpdate struct {
	Index     int    `json:"index" binding:"gte=0"`
	Completed bool   `json:"completed"`
	Note      string `json:"note"`
}

// RoutineInput is a full routine body written by a trainer.
type RoutineInput struct {
	Date      string                 `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Exercises []domain.ExerciseEntry `json:"exercises" binding:"min=1,dive"`
}

// InjuryInput is a new injury report.
type InjuryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Date        string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// records bundles the student-owned collections shared by the student and trainer services.
type records struct {
	routineRepo  repository.RoutineRepository
	injuryRepo   repository.InjuryRepository
	progressRepo repository.ProgressRepository
	scope        *access.Scope
	logger       *slog.Logger
	now          func() time.Time
}

func (r *records) today() string {
	return r.now().Format(domain.DateLayout)
}

func (r *records) routine(ctx context.Context, p access.Principal, action access.Action, resource access.Resource, id primitive.ObjectID) (*domain.Routine, error) {
	routine, err := r.routineRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, fmt.Errorf("load routine %s: %w", id.Hex(), err)
	}
	if err := r.scope.AuthorizeOwner(ctx, p, action, resource, routine.UserID); err != nil {
		return nil, err
	}
	return routine, nil
}

func (r *records) injury(ctx context.Context, p access.Principal, action access.Action, resource access.Resource, id primitive.ObjectID) (*domain.Injury, error) {
	injury, err := r.injuryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInjuryNotFound
		}
		return nil, fmt.Errorf("load injury %s: %w", id.Hex(), err)
	}
	if err := r.scope.AuthorizeOwner(ctx, p, action, resource, injury.UserID); err != nil {
		return nil, err
	}
	return injury, nil
}

func (r *records) listRoutines(ctx context.Context, p access.Principal, studentID primitive.ObjectID) ([]domain.Routine, error) {
	if err := r.scope.AuthorizeOwner(ctx, p, access.ActionRead, access.ResourceRoutine, studentID); err != nil {
		return nil, err
	}
	routines, err := r.routineRepo.ListByUserID(ctx, studentID)
	if err != nil {
		r.logger.ErrorContext(ctx, "listing routines failed", "studentId", studentID.Hex(), "error", err)
		return nil, err
	}
	return access.FilterOwned(ctx, r.scope, p, access.ResourceRoutine, routines, routineOwner)
}

func (r *records) listInjuries(ctx context.Context, p access.Principal, studentID primitive.ObjectID) ([]domain.Injury, error) {
	if err := r.scope.AuthorizeOwner(ctx, p, access.ActionRead, access.ResourceInjury, studentID); err != nil {
		return nil, err
	}
	injuries, err := r.injuryRepo.ListByUserID(ctx, studentID)
	if err != nil {
		r.logger.ErrorContext(ctx, "listing injuries failed", "studentId", studentID.Hex(), "error", err)
		return nil, err
	}
	return access.FilterOwned(ctx, r.scope, p, access.ResourceInjury, injuries, injuryOwner)
}

func (r *records) createInjury(ctx context.Context, p access.Principal, studentID primitive.ObjectID, in InjuryInput) (*domain.Injury, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := check(in); err != nil {
		return nil, err
	}
	date := in.Date
	if date == "" {
		date = r.today()
	}
	if err := r.scope.AuthorizeOwner(ctx, p, access.ActionCreate, access.ResourceInjury, studentID); err != nil {
		return nil, err
	}

	injury := &domain.Injury{
		UserID:      studentID,
		Name:        in.Name,
		Description: in.Description,
		Date:        date,
		Comments:    []string{},
		ReportedBy:  p.ID,
	}
	id, err := r.injuryRepo.Create(ctx, injury)
	if err != nil {
		r.logger.ErrorContext(ctx, "creating injury failed", "studentId", studentID.Hex(), "error", err)
		return nil, err
	}
	injury.ID = id
	return injury, nil
}

func (r *records) comment(ctx context.Context, p access.Principal, injuryID primitive.ObjectID, comment string) (*domain.Injury, error) {
	if err := check(injuryComment{Comment: strings.TrimSpace(comment)}); err != nil {
		return nil, err
	}
	if _, err := r.injury(ctx, p, access.ActionCreate, access.ResourceInjuryComment, injuryID); err != nil {
		return nil, err
	}
	if err := r.injuryRepo.AppendComment(ctx, injuryID, comment); err != nil {
		r.logger.ErrorContext(ctx, "appending comment failed", "injuryId", injuryID.Hex(), "error", err)
		return nil, err
	}
	return r.injuryRepo.GetByID(ctx, injuryID)
}

func (r *records) progress(ctx context.Context, p access.Principal, studentID primitive.ObjectID) (*ProgressView, error) {
	if err := r.scope.AuthorizeOwner(ctx, p, access.ActionRead, access.ResourceProgress, studentID); err != nil {
		return nil, err
	}
	progress, err := r.progressRepo.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &ProgressView{Progress: domain.NewProgress(studentID)}, nil
		}
		r.logger.ErrorContext(ctx, "loading progress failed", "studentId", studentID.Hex(), "error", err)
		return nil, err
	}
	return &ProgressView{Progress: progress, Exists: true}, nil
}

// watchProgress streams a student's progress while p keeps read access.
// Access is re-checked on every snapshot; losing it ends the stream with an error snapshot.
func (r *records) watchProgress(ctx context.Context, p access.Principal, studentID primitive.ObjectID) (<-chan domain.ProgressSnapshot, error) {
	if err := r.scope.AuthorizeOwner(ctx, p, access.ActionRead, access.ResourceProgress, studentID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	upstream, err := r.progressRepo.Watch(ctx, studentID)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan domain.ProgressSnapshot)
	go func() {
		defer close(out)
		defer cancel()
		for snap := range upstream {
			if err := r.scope.AuthorizeOwner(ctx, p, access.ActionRead, access.ResourceProgress, studentID); err != nil {
				select {
				case out <- domain.ProgressSnapshot{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// markCompletedDay records the routine's day on the calendar when every exercise is done.
func (r *records) markCompletedDay(ctx context.Context, routine *domain.Routine) {
	if !routine.AllCompleted() {
		return
	}
	if err := r.progressRepo.MarkDate(ctx, routine.UserID, routine.Date, domain.DayMark{Marked: true}); err != nil {
		r.logger.WarnContext(ctx, "marking completed day failed", "studentId", routine.UserID.Hex(), "date", routine.Date, "error", err)
	}
}

func routineOwner(r domain.Routine) primitive.ObjectID { return r.UserID }
func injuryOwner(i domain.Injury) primitive.ObjectID   { return i.UserID }
