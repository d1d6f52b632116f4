package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

func intPtr(v int) *int { return &v }

func TestRoutineRoundTrip(t *testing.T) {
	ctx := context.Background()
	routines := New().Routines()
	studentID := primitive.NewObjectID()

	in := &domain.Routine{
		UserID: studentID,
		Date:   "2024-05-01",
		Exercises: []domain.ExerciseEntry{
			{Name: "Squat", Sets: intPtr(3), Reps: intPtr(12), Note: "slow"},
			{Name: "Plank", Duration: "1 min", Completed: true},
		},
	}
	id, err := routines.Create(ctx, in)
	require.NoError(t, err)

	got, err := routines.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, studentID, got.UserID)
	assert.Equal(t, "2024-05-01", got.Date)
	assert.Equal(t, in.Exercises, got.Exercises)

	// Mutating the returned copy does not leak into the store.
	*got.Exercises[0].Sets = 99
	again, err := routines.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, *again.Exercises[0].Sets)
}

func TestRoutineCreateAppends(t *testing.T) {
	ctx := context.Background()
	routines := New().Routines()
	studentID := primitive.NewObjectID()

	for i := 0; i < 2; i++ {
		_, err := routines.Create(ctx, &domain.Routine{UserID: studentID, Date: "2024-05-01"})
		require.NoError(t, err)
	}
	_, err := routines.Create(ctx, &domain.Routine{UserID: primitive.NewObjectID(), Date: "2024-05-01"})
	require.NoError(t, err)

	list, err := routines.ListByUserID(ctx, studentID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, r := range list {
		assert.Equal(t, studentID, r.UserID)
	}
}

func TestStudentAssignment(t *testing.T) {
	ctx := context.Background()
	students := New().Students()
	trainerID := primitive.NewObjectID()
	s1 := &domain.Student{ID: primitive.NewObjectID(), Name: "Ana", Age: 30}
	s2 := &domain.Student{ID: primitive.NewObjectID(), Name: "Bea"}
	require.NoError(t, students.Create(ctx, s1))
	require.NoError(t, students.Create(ctx, s2))
	assert.ErrorIs(t, students.Create(ctx, s1), repository.ErrConflict)

	require.NoError(t, students.SetTrainer(ctx, s1.ID, trainerID))
	require.NoError(t, students.SetTrainer(ctx, s1.ID, trainerID))
	assert.ErrorIs(t, students.SetTrainer(ctx, primitive.NewObjectID(), trainerID), repository.ErrNotFound)

	owned, err := students.ListByTrainerID(ctx, trainerID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, s1.ID, owned[0].ID)
	assert.Equal(t, 30, owned[0].Age, "merge-update keeps other fields")

	others, err := students.ListByTrainerID(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, others)

	cleared, err := students.ClearTrainer(ctx, trainerID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)
	got, err := students.GetByID(ctx, s1.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TrainerID)
}

func TestInjuryMergeUpdateAndComments(t *testing.T) {
	ctx := context.Background()
	injuries := New().Injuries()
	id, err := injuries.Create(ctx, &domain.Injury{UserID: primitive.NewObjectID(), Name: "Knee", Description: "pain"})
	require.NoError(t, err)

	name := "Left knee"
	require.NoError(t, injuries.Update(ctx, id, repository.InjuryUpdate{Name: &name}))
	require.NoError(t, injuries.AppendComment(ctx, id, "ice it"))
	require.NoError(t, injuries.AppendComment(ctx, id, "rest"))

	got, err := injuries.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Left knee", got.Name)
	assert.Equal(t, "pain", got.Description)
	assert.Equal(t, []string{"ice it", "rest"}, got.Comments)

	assert.ErrorIs(t, injuries.AppendComment(ctx, primitive.NewObjectID(), "x"), repository.ErrNotFound)
}

func TestProgressUpsertAndWatch(t *testing.T) {
	store := New()
	progress := store.Progress()
	studentID := primitive.NewObjectID()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := progress.Get(ctx, studentID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	snapshots, err := progress.Watch(ctx, studentID)
	require.NoError(t, err)

	first := receive(t, snapshots)
	assert.False(t, first.Exists)
	assert.Equal(t, studentID, first.Progress.ID)
	assert.Empty(t, first.Progress.CompletedDates)

	weekly := [7]float64{1, 2, 3, 4, 5, 6, 7}
	require.NoError(t, progress.Update(ctx, studentID, repository.ProgressUpdate{WeeklyProgress: &weekly}))
	second := receive(t, snapshots)
	assert.True(t, second.Exists)
	assert.Equal(t, weekly, second.Progress.WeeklyProgress)

	require.NoError(t, progress.MarkDate(ctx, studentID, "2024-05-01", domain.DayMark{Marked: true}))
	third := receive(t, snapshots)
	assert.Equal(t, weekly, third.Progress.WeeklyProgress, "marking a date keeps the series")
	assert.True(t, third.Progress.CompletedDates["2024-05-01"].Marked)

	cancel()
	for range snapshots {
	}
	assert.Equal(t, 0, store.subscriberCount(progressTopic(studentID)))
}

func TestTrainersWatch(t *testing.T) {
	store := New()
	trainers := store.Trainers()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := trainers.Watch(ctx)
	require.NoError(t, err)
	assert.Empty(t, receive(t, snapshots).Trainers)

	trainer := &domain.Trainer{ID: primitive.NewObjectID(), Name: "Tom"}
	require.NoError(t, trainers.Create(ctx, trainer))
	got := receive(t, snapshots)
	require.Len(t, got.Trainers, 1)
	assert.Equal(t, "Tom", got.Trainers[0].Name)

	require.NoError(t, trainers.Delete(ctx, trainer.ID))
	assert.Empty(t, receive(t, snapshots).Trainers)
	assert.ErrorIs(t, trainers.Delete(ctx, trainer.ID), repository.ErrNotFound)
}

func TestCredentialEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	creds := New().Credentials()
	id, err := creds.Create(ctx, &domain.Credential{Email: "Ana@Example.com", PasswordHash: "h"})
	require.NoError(t, err)

	got, err := creds.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = creds.Create(ctx, &domain.Credential{Email: "ana@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	var zero T
	return zero
}
