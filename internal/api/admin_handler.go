package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/service"
)

// AdminHandler serves the adminmaster navigator.
type AdminHandler struct {
	adminService service.AdminService
}

func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// AssignRequest selects the trainer for a student. An empty trainerId means none was selected.
type AssignRequest struct {
	TrainerID string `json:"trainerId"`
}

func (h *AdminHandler) ListTrainers(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	trainers, err := h.adminService.ListTrainers(c.Request.Context(), caller.Principal)
	if err != nil {
		respondError(c, err)
		return
	}
	if trainers == nil {
		trainers = []domain.Trainer{}
	}
	c.JSON(http.StatusOK, trainers)
}

func (h *AdminHandler) TrainersStream(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	snapshots, err := h.adminService.WatchTrainers(c.Request.Context(), caller.Principal)
	if err != nil {
		respondError(c, err)
		return
	}
	streamSnapshots(c, "trainers", snapshots, func(s domain.TrainersSnapshot) (any, bool, error) {
		if s.Err != nil {
			return nil, true, s.Err
		}
		if s.Trainers == nil {
			return []domain.Trainer{}, false, nil
		}
		return s.Trainers, false, nil
	})
}

// CreateTrainer godoc
// @Summary Create a trainer
// @Description Provisions the trainer's login with a temporary password, changed on first sign-in.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param trainer body service.TrainerInput true "Trainer details"
// @Success 201 {object} domain.Trainer
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 409 {object} gin.H "Email already in use"
// @Router /admin/trainers [post]
func (h *AdminHandler) CreateTrainer(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req service.TrainerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	trainer, err := h.adminService.CreateTrainer(c.Request.Context(), caller.Principal, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trainer)
}

func (h *AdminHandler) DeleteTrainer(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	trainerID, ok := objectIDParam(c, "trainerId")
	if !ok {
		return
	}
	if err := h.adminService.DeleteTrainer(c.Request.Context(), caller.Principal, trainerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListStudents(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	students, err := h.adminService.ListStudents(c.Request.Context(), caller.Principal)
	if err != nil {
		respondError(c, err)
		return
	}
	if students == nil {
		students = []domain.Student{}
	}
	c.JSON(http.StatusOK, students)
}

func (h *AdminHandler) AssignStudent(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	trainerID := primitive.NilObjectID
	if req.TrainerID != "" {
		id, err := primitive.ObjectIDFromHex(req.TrainerID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid trainerId format.")
			return
		}
		trainerID = id
	}

	student, err := h.adminService.AssignStudent(c.Request.Context(), caller.Principal, trainerID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}
