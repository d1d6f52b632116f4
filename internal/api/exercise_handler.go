package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/service"
)

// ExerciseHandler serves the demo videos attached to routine exercises.
type ExerciseHandler struct {
	studentService service.StudentService
	trainerService service.TrainerService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(studentService service.StudentService, trainerService service.TrainerService) *ExerciseHandler {
	return &ExerciseHandler{studentService: studentService, trainerService: trainerService}
}

// --- DTOs for API (Data Transfer Objects) ---

type VideoUploadRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required,startswith=video/"`
}

type AttachVideoRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

type VideoURLResponse struct {
	URL string `json:"url"`
}

// RequestUploadURL godoc
// @Summary Get a presigned upload URL for an exercise video
// @Description The client PUTs the file to uploadUrl, then attaches objectKey to the exercise.
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param routineId path string true "Routine ID"
// @Param index path int true "Exercise position in the routine"
// @Param upload body VideoUploadRequest true "File name and content type"
// @Success 200 {object} service.VideoUploadResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 503 {object} gin.H "Video storage not configured"
// @Router /trainer/routines/{routineId}/exercises/{index}/video-upload [post]
func (h *ExerciseHandler) RequestUploadURL(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req VideoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.trainerService.RequestVideoUpload(c.Request.Context(), caller.Principal, routineID, index, req.FileName, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ExerciseHandler) AttachVideo(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req AttachVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	routine, err := h.trainerService.AttachVideo(c.Request.Context(), caller.Principal, routineID, index, req.ObjectKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineToResponse(routine))
}

// VideoURL returns a presigned download URL for the caller's role.
func (h *ExerciseHandler) VideoURL(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}

	var url string
	var err error
	switch caller.Principal.Role {
	case domain.RoleTrainer:
		url, err = h.trainerService.ExerciseVideoURL(c.Request.Context(), caller.Principal, routineID, index)
	default:
		url, err = h.studentService.ExerciseVideoURL(c.Request.Context(), caller.Principal, routineID, index)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, VideoURLResponse{URL: url})
}
