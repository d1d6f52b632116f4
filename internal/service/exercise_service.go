package service

import (
	"context"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/access"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/storage"
)

// VideoUploadResponse is returned when a trainer requests an upload URL.
type VideoUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"` // The key the client reports back when attaching the video
}

// exerciseVideos manages demo videos attached to routine exercises.
type exerciseVideos struct {
	records     *records
	fileStorage storage.FileStorage
	logger      *slog.Logger
}

func exerciseAt(routine *domain.Routine, index int) (*domain.ExerciseEntry, error) {
	if index < 0 || index >= len(routine.Exercises) {
		return nil, ErrExerciseNotFound
	}
	return &routine.Exercises[index], nil
}

// uploadURL presigns a PUT for a new video of one exercise. The routine is
// only checked here; the key is stored once the client attaches it.
func (v *exerciseVideos) uploadURL(ctx context.Context, p access.Principal, routineID primitive.ObjectID, index int, fileName, contentType string) (*VideoUploadResponse, error) {
	if err := check(videoUpload{FileName: strings.TrimSpace(fileName), ContentType: contentType}); err != nil {
		return nil, err
	}
	routine, err := v.records.routine(ctx, p, access.ActionUpdate, access.ResourceRoutine, routineID)
	if err != nil {
		return nil, err
	}
	if _, err := exerciseAt(routine, index); err != nil {
		return nil, err
	}

	objectKey := storage.VideoKey(routine.UserID, routine.ID, fileName)
	uploadURL, err := v.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, err
	}
	return &VideoUploadResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// attach stores objectKey on the exercise and removes the video it replaces.
func (v *exerciseVideos) attach(ctx context.Context, p access.Principal, routineID primitive.ObjectID, index int, objectKey string) (*domain.Routine, error) {
	routine, err := v.records.routine(ctx, p, access.ActionUpdate, access.ResourceRoutine, routineID)
	if err != nil {
		return nil, err
	}
	if !storage.VideoKeyBelongsTo(objectKey, routine.UserID, routine.ID) {
		return nil, invalid("objectKey", "The video does not belong to this routine.")
	}
	exercise, err := exerciseAt(routine, index)
	if err != nil {
		return nil, err
	}

	previous := exercise.VideoKey
	exercise.VideoKey = objectKey
	if err := v.records.routineRepo.Update(ctx, routine); err != nil {
		v.logger.ErrorContext(ctx, "attaching video failed", "routineId", routineID.Hex(), "error", err)
		return nil, err
	}
	if previous != "" && previous != objectKey {
		v.remove(ctx, previous)
	}
	return routine, nil
}

// downloadURL presigns a GET for an exercise's video, for anyone who may read the routine.
func (v *exerciseVideos) downloadURL(ctx context.Context, p access.Principal, routineID primitive.ObjectID, index int) (string, error) {
	routine, err := v.records.routine(ctx, p, access.ActionRead, access.ResourceRoutine, routineID)
	if err != nil {
		return "", err
	}
	exercise, err := exerciseAt(routine, index)
	if err != nil {
		return "", err
	}
	if exercise.VideoKey == "" {
		return "", ErrVideoNotFound
	}
	return v.fileStorage.GeneratePresignedDownloadURL(ctx, exercise.VideoKey, storage.DefaultPresignedURLExpiry)
}

// removeAll deletes the videos of a routine that is going away.
func (v *exerciseVideos) removeAll(ctx context.Context, routine *domain.Routine) {
	for _, ex := range routine.Exercises {
		if ex.VideoKey != "" {
			v.remove(ctx, ex.VideoKey)
		}
	}
}

func (v *exerciseVideos) remove(ctx context.Context, key string) {
	if err := v.fileStorage.DeleteObject(ctx, key); err != nil {
		v.logger.WarnContext(ctx, "removing exercise video failed", "key", key, "error", err)
	}
}
