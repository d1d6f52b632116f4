package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/access"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/service"
	"alcyxob/fitness-coach/internal/storage"
)

const (
	msgSomethingWentWrong = "Something went wrong. Please try again."
	msgSessionExpired     = "Your session has expired. Please sign in again."
	msgForbidden          = "You do not have access to this resource."
	msgRoleNotRecognized  = "Role not recognized, please contact support."
	msgMediaUnavailable   = "Video storage is not available right now."
)

// respondError maps service, identity and access errors to HTTP and aborts the request.
// Anything unrecognized is a store or network failure: logged, then reported generically.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})

	case errors.Is(err, service.ErrTrainerNotSelected):
		abortWithError(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, identity.ErrUnknownUser),
		errors.Is(err, identity.ErrWrongPassword),
		errors.Is(err, identity.ErrSignInFailed):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrSessionInvalid):
		abortWithError(c, http.StatusUnauthorized, msgSessionExpired)

	case errors.Is(err, access.ErrUnrecognizedRole):
		abortWithError(c, http.StatusForbidden, msgRoleNotRecognized)
	case errors.Is(err, access.ErrForbidden):
		abortWithError(c, http.StatusForbidden, msgForbidden)
	case errors.Is(err, service.ErrPasswordChangeRequired):
		abortWithError(c, http.StatusForbidden, err.Error())

	case errors.Is(err, identity.ErrEmailTaken):
		abortWithError(c, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrProfileNotProvisioned),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrTrainerNotFound),
		errors.Is(err, service.ErrRoutineNotFound),
		errors.Is(err, service.ErrInjuryNotFound),
		errors.Is(err, service.ErrExerciseNotFound),
		errors.Is(err, service.ErrVideoNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())

	case errors.Is(err, storage.ErrMediaUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, msgMediaUnavailable)

	case errors.Is(err, service.ErrRegistrationFailed):
		loggerFrom(c).ErrorContext(c.Request.Context(), "registration failed", "error", err)
		abortWithError(c, http.StatusInternalServerError, err.Error())
	default:
		loggerFrom(c).ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, msgSomethingWentWrong)
	}
}

// respondBindError reports a rejected request body. Tag failures read like the
// service's own validation errors; malformed JSON is reported as is.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		respondError(c, service.TranslateValidation(verrs))
		return
	}
	abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
}

func isForbidden(err error) bool {
	return errors.Is(err, access.ErrForbidden) || errors.Is(err, access.ErrUnrecognizedRole)
}

// objectIDParam parses a hex ObjectID path parameter, aborting with 400 when malformed.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise index.")
		return 0, false
	}
	return index, true
}
