package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

type routineRepo struct{ s *Store }

func (r *routineRepo) Create(_ context.Context, routine *domain.Routine) (primitive.ObjectID, error) {
	if routine.UserID.IsZero() || routine.Date == "" {
		return primitive.NilObjectID, errors.New("routine requires userID and date")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	routine.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	routine.CreatedAt = now
	routine.UpdatedAt = now
	if routine.Exercises == nil {
		routine.Exercises = []domain.ExerciseEntry{}
	}
	r.s.routines[routine.ID] = cloneRoutine(*routine)
	return routine.ID, nil
}

func (r *routineRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Routine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	routine, ok := r.s.routines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	routine = cloneRoutine(routine)
	return &routine, nil
}

func (r *routineRepo) ListByUserID(_ context.Context, userID primitive.ObjectID) ([]domain.Routine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	routines := []domain.Routine{}
	for _, routine := range r.s.routines {
		if routine.UserID == userID {
			routines = append(routines, cloneRoutine(routine))
		}
	}
	sort.Slice(routines, func(i, j int) bool {
		if routines[i].Date != routines[j].Date {
			return routines[i].Date > routines[j].Date
		}
		return routines[i].ID.Hex() > routines[j].ID.Hex()
	})
	return routines, nil
}

func (r *routineRepo) Update(_ context.Context, routine *domain.Routine) error {
	if routine.ID.IsZero() {
		return errors.New("routine ID is required for update")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.routines[routine.ID]
	if !ok {
		return repository.ErrNotFound
	}
	routine.UpdatedAt = time.Now().UTC()
	stored.Date = routine.Date
	stored.Exercises = routine.Exercises
	stored.UpdatedAt = routine.UpdatedAt
	r.s.routines[routine.ID] = cloneRoutine(stored)
	return nil
}

func (r *routineRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.routines[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.routines, id)
	return nil
}

type injuryRepo struct{ s *Store }

func (r *injuryRepo) Create(_ context.Context, injury *domain.Injury) (primitive.ObjectID, error) {
	if injury.UserID.IsZero() || injury.Name == "" {
		return primitive.NilObjectID, errors.New("injury requires userID and name")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	injury.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	injury.CreatedAt = now
	injury.UpdatedAt = now
	if injury.Comments == nil {
		injury.Comments = []string{}
	}
	r.s.injuries[injury.ID] = cloneInjury(*injury)
	return injury.ID, nil
}

func (r *injuryRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Injury, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	injury, ok := r.s.injuries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	injury = cloneInjury(injury)
	return &injury, nil
}

func (r *injuryRepo) ListByUserID(_ context.Context, userID primitive.ObjectID) ([]domain.Injury, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	injuries := []domain.Injury{}
	for _, injury := range r.s.injuries {
		if injury.UserID == userID {
			injuries = append(injuries, cloneInjury(injury))
		}
	}
	sort.Slice(injuries, func(i, j int) bool {
		return injuries[i].ID.Hex() > injuries[j].ID.Hex()
	})
	return injuries, nil
}

func (r *injuryRepo) Update(_ context.Context, id primitive.ObjectID, update repository.InjuryUpdate) error {
	return r.modify(id, func(injury *domain.Injury) {
		if update.Name != nil {
			injury.Name = *update.Name
		}
		if update.Description != nil {
			injury.Description = *update.Description
		}
	})
}

func (r *injuryRepo) AppendComment(_ context.Context, id primitive.ObjectID, comment string) error {
	return r.modify(id, func(injury *domain.Injury) {
		injury.Comments = append(injury.Comments, comment)
	})
}

func (r *injuryRepo) modify(id primitive.ObjectID, fn func(*domain.Injury)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	injury, ok := r.s.injuries[id]
	if !ok {
		return repository.ErrNotFound
	}
	injury = cloneInjury(injury)
	fn(&injury)
	injury.UpdatedAt = time.Now().UTC()
	r.s.injuries[id] = injury
	return nil
}

type progressRepo struct{ s *Store }

func (r *progressRepo) Get(_ context.Context, userID primitive.ObjectID) (*domain.Progress, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	progress, ok := r.s.progress[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	progress = cloneProgress(progress)
	return &progress, nil
}

func (r *progressRepo) Update(_ context.Context, userID primitive.ObjectID, update repository.ProgressUpdate) error {
	if update.WeeklyProgress == nil && update.MonthlyGoals == nil && update.RoutineComparison == nil {
		return nil
	}
	r.upsert(userID, func(p *domain.Progress) {
		if update.WeeklyProgress != nil {
			p.WeeklyProgress = *update.WeeklyProgress
		}
		if update.MonthlyGoals != nil {
			p.MonthlyGoals = *update.MonthlyGoals
		}
		if update.RoutineComparison != nil {
			p.RoutineComparison = *update.RoutineComparison
		}
	})
	return nil
}

func (r *progressRepo) MarkDate(_ context.Context, userID primitive.ObjectID, date string, mark domain.DayMark) error {
	r.upsert(userID, func(p *domain.Progress) {
		p.CompletedDates[date] = mark
	})
	return nil
}

func (r *progressRepo) upsert(userID primitive.ObjectID, fn func(*domain.Progress)) {
	r.s.mu.Lock()
	progress, ok := r.s.progress[userID]
	if ok {
		progress = cloneProgress(progress)
	} else {
		progress = *domain.NewProgress(userID)
	}
	fn(&progress)
	r.s.progress[userID] = progress
	r.s.mu.Unlock()

	r.s.notify(progressTopic(userID))
}

func (r *progressRepo) Watch(ctx context.Context, userID primitive.ObjectID) (<-chan domain.ProgressSnapshot, error) {
	return watch(ctx, r.s, progressTopic(userID), func() domain.ProgressSnapshot {
		progress, err := r.Get(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ProgressSnapshot{Progress: domain.NewProgress(userID)}
		}
		return domain.ProgressSnapshot{Progress: progress, Exists: err == nil, Err: err}
	}), nil
}
