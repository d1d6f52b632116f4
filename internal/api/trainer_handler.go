package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/service"
)

type TrainerHandler struct {
	trainerService service.TrainerService
}

func NewTrainerHandler(trainerService service.TrainerService) *TrainerHandler {
	return &TrainerHandler{trainerService: trainerService}
}

// --- DTOs ---

type InjuryUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// --- Handler Methods for Student Management ---

// ListStudents godoc
// @Summary Get the trainer's students
// @Description Retrieves the students currently assigned to the authenticated trainer.
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Student "List of assigned students"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not a trainer, or password change pending)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /trainer/students [get]
func (h *TrainerHandler) ListStudents(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	students, err := h.trainerService.ListStudents(c.Request.Context(), caller.Principal)
	if err != nil {
		respondError(c, err)
		return
	}
	if students == nil {
		students = []domain.Student{} // Return empty JSON array, not null
	}
	c.JSON(http.StatusOK, students)
}

func (h *TrainerHandler) StudentDetails(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	details, err := h.trainerService.StudentDetails(c.Request.Context(), caller.Principal, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// --- Handler Methods for Routine Management ---

func (h *TrainerHandler) ListRoutines(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	routines, err := h.trainerService.ListRoutines(c.Request.Context(), caller.Principal, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutinesToResponse(routines))
}

// CreateRoutine godoc
// @Summary Create a routine for an assigned student
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param routine body service.RoutineInput true "Date (YYYY-MM-DD, defaults to today) and exercises"
// @Success 201 {object} RoutineResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Student not assigned to this trainer"
// @Router /trainer/students/{studentId}/routines [post]
func (h *TrainerHandler) CreateRoutine(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	var req service.RoutineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	routine, err := h.trainerService.CreateRoutine(c.Request.Context(), caller.Principal, studentID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapRoutineToResponse(routine))
}

func (h *TrainerHandler) UpdateRoutine(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	var req service.RoutineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	routine, err := h.trainerService.UpdateRoutine(c.Request.Context(), caller.Principal, routineID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineToResponse(routine))
}

func (h *TrainerHandler) DeleteRoutine(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	if err := h.trainerService.DeleteRoutine(c.Request.Context(), caller.Principal, routineID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Handler Methods for Injury Management ---

func (h *TrainerHandler) ListInjuries(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	injuries, err := h.trainerService.ListInjuries(c.Request.Context(), caller.Principal, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	if injuries == nil {
		injuries = []domain.Injury{}
	}
	c.JSON(http.StatusOK, injuries)
}

func (h *TrainerHandler) CreateInjury(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	var req service.InjuryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	injury, err := h.trainerService.CreateInjury(c.Request.Context(), caller.Principal, studentID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, injury)
}

func (h *TrainerHandler) UpdateInjury(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	injuryID, ok := objectIDParam(c, "injuryId")
	if !ok {
		return
	}
	var req InjuryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	update := repository.InjuryUpdate{Name: req.Name, Description: req.Description}
	injury, err := h.trainerService.UpdateInjury(c.Request.Context(), caller.Principal, injuryID, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, injury)
}

func (h *TrainerHandler) CommentOnInjury(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	injuryID, ok := objectIDParam(c, "injuryId")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	injury, err := h.trainerService.CommentOnInjury(c.Request.Context(), caller.Principal, injuryID, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, injury)
}

// --- Handler Methods for Progress ---

func (h *TrainerHandler) GetProgress(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	view, err := h.trainerService.GetProgress(c.Request.Context(), caller.Principal, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TrainerHandler) ProgressStream(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	streamProgress(c, func(ctx context.Context) (<-chan domain.ProgressSnapshot, error) {
		return h.trainerService.WatchProgress(ctx, caller.Principal, studentID)
	})
}
