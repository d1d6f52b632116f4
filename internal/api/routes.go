package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/service"
	"alcyxob/fitness-coach/internal/session"
)

// Services bundles what the routes need.
type Services struct {
	Auth     service.AuthService
	Students service.StudentService
	Trainers service.TrainerService
	Admin    service.AdminService
	Provider identity.Provider
	Accounts session.AccountReader
}

var registerValidations sync.Once

func SetupRoutes(router *gin.Engine, svc Services) {
	registerValidations.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			service.RegisterValidations(v)
		}
	})

	authHandler := NewAuthHandler(svc.Auth, svc.Provider, svc.Accounts)
	studentHandler := NewStudentHandler(svc.Students)
	trainerHandler := NewTrainerHandler(svc.Trainers)
	exerciseHandler := NewExerciseHandler(svc.Students, svc.Trainers)
	adminHandler := NewAdminHandler(svc.Admin)

	authMiddleware := AuthMiddleware(svc.Auth)
	sessionMiddleware := SessionMiddleware(svc.Provider)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
		// GET /api/v1/session - the navigator to show; no token means unauthenticated
		apiV1.GET("/session", authHandler.Session)
	}

	// Any live session, including ones whose role or profile cannot be routed.
	sessionGroup := apiV1.Group("")
	sessionGroup.Use(sessionMiddleware)
	{
		sessionGroup.POST("/auth/logout", authHandler.Logout)
		sessionGroup.GET("/session/stream", authHandler.SessionStream)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		// Reachable during the first-login step, unlike every other trainer route.
		protected.PUT("/auth/password", RoleMiddleware(domain.RoleTrainer), authHandler.ChangePassword)
		protected.GET("/me", authHandler.Me)

		// --- Student Routes ---
		studentGroup := protected.Group("/student")
		studentGroup.Use(RoleMiddleware(domain.RoleStudent))
		{
			studentGroup.GET("/profile", studentHandler.Profile)

			studentGroup.GET("/routines", studentHandler.ListRoutines)
			studentGroup.POST("/routines", studentHandler.SaveRoutine)
			studentGroup.GET("/routines/:routineId", studentHandler.GetRoutine)
			studentGroup.PATCH("/routines/:routineId/completion", studentHandler.UpdateCompletion)
			studentGroup.GET("/routines/:routineId/exercises/:index/video", exerciseHandler.VideoURL)

			studentGroup.GET("/injuries", studentHandler.ListInjuries)
			studentGroup.POST("/injuries", studentHandler.ReportInjury)
			studentGroup.POST("/injuries/:injuryId/comments", studentHandler.CommentOnInjury)

			studentGroup.GET("/progress", studentHandler.GetProgress)
			studentGroup.PATCH("/progress", studentHandler.UpdateProgress)
			studentGroup.GET("/progress/stream", studentHandler.ProgressStream)
		}

		// --- Trainer Routes ---
		trainerGroup := protected.Group("/trainer")
		trainerGroup.Use(RoleMiddleware(domain.RoleTrainer), PasswordChangeGate())
		{
			trainerGroup.GET("/students", trainerHandler.ListStudents)
			trainerGroup.GET("/students/:studentId", trainerHandler.StudentDetails)

			// --- Routine Management ---
			trainerGroup.GET("/students/:studentId/routines", trainerHandler.ListRoutines)
			trainerGroup.POST("/students/:studentId/routines", trainerHandler.CreateRoutine)
			trainerGroup.PUT("/routines/:routineId", trainerHandler.UpdateRoutine)
			trainerGroup.DELETE("/routines/:routineId", trainerHandler.DeleteRoutine)

			// --- Exercise Videos ---
			trainerGroup.POST("/routines/:routineId/exercises/:index/video-upload", exerciseHandler.RequestUploadURL)
			trainerGroup.PUT("/routines/:routineId/exercises/:index/video", exerciseHandler.AttachVideo)
			trainerGroup.GET("/routines/:routineId/exercises/:index/video", exerciseHandler.VideoURL)

			// --- Injury Management ---
			trainerGroup.GET("/students/:studentId/injuries", trainerHandler.ListInjuries)
			trainerGroup.POST("/students/:studentId/injuries", trainerHandler.CreateInjury)
			trainerGroup.PATCH("/injuries/:injuryId", trainerHandler.UpdateInjury)
			trainerGroup.POST("/injuries/:injuryId/comments", trainerHandler.CommentOnInjury)

			trainerGroup.GET("/students/:studentId/progress", trainerHandler.GetProgress)
			trainerGroup.GET("/students/:studentId/progress/stream", trainerHandler.ProgressStream)
		}

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.GET("/trainers", adminHandler.ListTrainers)
			adminGroup.POST("/trainers", adminHandler.CreateTrainer)
			adminGroup.GET("/trainers/stream", adminHandler.TrainersStream)
			adminGroup.DELETE("/trainers/:trainerId", adminHandler.DeleteTrainer)

			adminGroup.GET("/students", adminHandler.ListStudents)
			// PUT /api/v1/admin/students/{studentId}/trainer
			adminGroup.PUT("/students/:studentId/trainer", adminHandler.AssignStudent)
		}
	}
}
