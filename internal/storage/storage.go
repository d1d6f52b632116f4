package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

const videoPrefix = "exercise-videos"

// ErrMediaUnavailable is returned by every operation when no bucket is configured.
var ErrMediaUnavailable = errors.New("media storage is not configured")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// VideoKey builds the object key of an exercise demo video:
// exercise-videos/<studentID>/<routineID>/<uuid>.<ext>
func VideoKey(studentID, routineID primitive.ObjectID, fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
	if ext == "" {
		ext = "mp4"
	}
	return fmt.Sprintf("%s/%s/%s/%s.%s", videoPrefix, studentID.Hex(), routineID.Hex(), uuid.NewString(), ext)
}

// VideoKeyBelongsTo reports whether key was built for the given student and routine.
func VideoKeyBelongsTo(key string, studentID, routineID primitive.ObjectID) bool {
	prefix := fmt.Sprintf("%s/%s/%s/", videoPrefix, studentID.Hex(), routineID.Hex())
	return strings.HasPrefix(key, prefix)
}

type disabledStorage struct{}

// Disabled returns a FileStorage that fails every call with ErrMediaUnavailable.
func Disabled() FileStorage {
	return disabledStorage{}
}

func (disabledStorage) GeneratePresignedUploadURL(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrMediaUnavailable
}

func (disabledStorage) GeneratePresignedDownloadURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrMediaUnavailable
}

func (disabledStorage) DeleteObject(context.Context, string) error {
	return ErrMediaUnavailable
}
