package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/service"
)

// StudentHandler serves the student navigator.
type StudentHandler struct {
	studentService service.StudentService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(studentService service.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

// --- DTOs ---

type SaveRoutineRequest struct {
	Exercises []domain.ExerciseEntry `json:"exercises" binding:"min=1,dive"`
}

type CompletionRequest struct {
	Updates []service.CompletionUpdate `json:"updates" binding:"min=1,dive"`
}

type CommentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// ProgressRequest is a partial progress write; omitted series are left untouched.
// A series that is sent must have exactly one value per slot.
type ProgressRequest struct {
	WeeklyProgress    []float64 `json:"weeklyProgress" binding:"omitnil,len=7"`
	MonthlyGoals      []float64 `json:"monthlyGoals" binding:"omitnil,len=3"`
	RoutineComparison []float64 `json:"routineComparison" binding:"omitnil,len=4"`
}

func (r ProgressRequest) toUpdate() repository.ProgressUpdate {
	var u repository.ProgressUpdate
	if r.WeeklyProgress != nil {
		u.WeeklyProgress = &[7]float64{}
		copy(u.WeeklyProgress[:], r.WeeklyProgress)
	}
	if r.MonthlyGoals != nil {
		u.MonthlyGoals = &[3]float64{}
		copy(u.MonthlyGoals[:], r.MonthlyGoals)
	}
	if r.RoutineComparison != nil {
		u.RoutineComparison = &[4]float64{}
		copy(u.RoutineComparison[:], r.RoutineComparison)
	}
	return u
}

// ExerciseResponse exposes whether a demo video is attached without leaking its object key.
type ExerciseResponse struct {
	domain.ExerciseEntry
	HasVideo bool `json:"hasVideo"`
}

type RoutineResponse struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userID"`
	Date      string             `json:"date"`
	Exercises []ExerciseResponse `json:"exercises"`
	CreatedBy string             `json:"createdBy"`
}

// MapRoutineToResponse converts a domain.Routine to its response DTO.
func MapRoutineToResponse(r *domain.Routine) RoutineResponse {
	if r == nil {
		return RoutineResponse{}
	}
	exercises := make([]ExerciseResponse, len(r.Exercises))
	for i, ex := range r.Exercises {
		exercises[i] = ExerciseResponse{ExerciseEntry: ex, HasVideo: ex.VideoKey != ""}
	}
	return RoutineResponse{
		ID:        r.ID.Hex(),
		UserID:    r.UserID.Hex(),
		Date:      r.Date,
		Exercises: exercises,
		CreatedBy: r.CreatedBy.Hex(),
	}
}

// MapRoutinesToResponse converts a slice of domain.Routine to response DTOs.
func MapRoutinesToResponse(routines []domain.Routine) []RoutineResponse {
	responses := make([]RoutineResponse, len(routines))
	for i := range routines {
		responses[i] = MapRoutineToResponse(&routines[i])
	}
	return responses
}

// --- Handler Methods ---

func (h *StudentHandler) Profile(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	student, err := h.studentService.Profile(c.Request.Context(), caller.Principal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *StudentHandler) ListRoutines(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	routines, err := h.studentService.ListRoutines(c.Request.Context(), caller.Principal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutinesToResponse(routines))
}

func (h *StudentHandler) GetRoutine(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	routine, err := h.studentService.GetRoutine(c.Request.Context(), caller.Principal, routineID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineToResponse(routine))
}

// SaveRoutine godoc
// @Summary Save today's routine progress
// @Description Stores a new routine dated today. Saving twice on one day keeps both.
// @Tags Student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param routine body SaveRoutineRequest true "Exercises with completion flags"
// @Success 201 {object} RoutineResponse
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Router /student/routines [post]
func (h *StudentHandler) SaveRoutine(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req SaveRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	routine, err := h.studentService.SaveRoutineProgress(c.Request.Context(), caller.Principal, req.Exercises)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapRoutineToResponse(routine))
}

func (h *StudentHandler) UpdateCompletion(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	routineID, ok := objectIDParam(c, "routineId")
	if !ok {
		return
	}
	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	routine, err := h.studentService.UpdateRoutineCompletion(c.Request.Context(), caller.Principal, routineID, req.Updates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineToResponse(routine))
}

func (h *StudentHandler) ListInjuries(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	injuries, err := h.studentService.ListInjuries(c.Request.Context(), caller.Principal)
	if err != nil {
		respondError(c, err)
		return
	}
	if injuries == nil {
		injuries = []domain.Injury{} // Return empty JSON array, not null
	}
	c.JSON(http.StatusOK, injuries)
}

func (h *StudentHandler) ReportInjury(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req service.InjuryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	injury, err := h.studentService.ReportInjury(c.Request.Context(), caller.Principal, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, injury)
}

func (h *StudentHandler) CommentOnInjury(c *gin.Context) {
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
	injury, err := h.studentService.CommentOnInjury(c.Request.Context(), caller.Principal, injuryID, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, injury)
}

func (h *StudentHandler) GetProgress(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	view, err := h.studentService.GetProgress(c.Request.Context(), caller.Principal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StudentHandler) UpdateProgress(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	view, err := h.studentService.UpdateProgress(c.Request.Context(), caller.Principal, req.toUpdate())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StudentHandler) ProgressStream(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	streamProgress(c, func(ctx context.Context) (<-chan domain.ProgressSnapshot, error) {
		return h.studentService.WatchProgress(ctx, caller.Principal)
	})
}

// streamProgress opens a progress watch scoped to the request and streams it as "progress" events.
func streamProgress(c *gin.Context, watch func(ctx context.Context) (<-chan domain.ProgressSnapshot, error)) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	snapshots, err := watch(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	streamSnapshots(c, "progress", snapshots, func(s domain.ProgressSnapshot) (any, bool, error) {
		if s.Err != nil {
			return nil, true, s.Err
		}
		return service.ProgressView{Progress: s.Progress, Exists: s.Exists}, false, nil
	})
}
