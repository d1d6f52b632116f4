package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/service"
	"alcyxob/fitness-coach/internal/session"
)

// AuthHandler holds the authentication dependencies.
type AuthHandler struct {
	authService service.AuthService
	provider    identity.Provider
	accounts    session.AccountReader
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, provider identity.Provider, accounts session.AccountReader) *AuthHandler {
	return &AuthHandler{authService: authService, provider: provider, accounts: accounts}
}

// --- Request/Response Structs ---

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string             `json:"token"`
	SessionID string             `json:"sessionId"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Identity  *identity.Identity `json:"identity"`
	State     session.State      `json:"state"`
}

type ChangePasswordRequest struct {
	NewPassword  string `json:"newPassword" binding:"required,min=6"`
	Confirmation string `json:"confirmation" binding:"required,eqfield=NewPassword"`
}

// MeResponse is the caller's account plus the password step flag.
type MeResponse struct {
	Account            *domain.Account `json:"account"`
	MustChangePassword bool            `json:"mustChangePassword"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new student
// @Description Creates the identity, account and student profile.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body service.RegisterStudentInput true "Registration details"
// @Success 201 {object} domain.Student "Student created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 409 {object} gin.H "Conflict (email already exists)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterStudentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	student, err := h.authService.RegisterStudent(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

// Login godoc
// @Summary Log in
// @Description Authenticates and returns a token plus the navigator state to show.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized (unknown user or wrong password)"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Please fill in all fields.")
		return
	}

	result, err := h.authService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Session.Token,
		SessionID: result.Session.ID,
		ExpiresAt: result.Session.ExpiresAt,
		Identity:  result.Session.Identity,
		State:     result.State,
	})
}

// Logout ends the presented session. Sessions without a routable account may sign out too.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.SignOut(c.Request.Context(), c.GetString(ContextTokenKey)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword replaces the caller's password. It stays reachable during the first-login step.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), caller.Principal, req.NewPassword, req.Confirmation); err != nil {
		respondError(c, err)
		return
	}

	state, err := h.authService.SessionState(c.Request.Context(), c.GetString(ContextTokenKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Session reports the navigator state for the presented token. No token is the unauthenticated state.
func (h *AuthHandler) Session(c *gin.Context) {
	token, err := bearerToken(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	state, err := h.authService.SessionState(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SessionStream pushes the session's state on every identity change until the
// session ends or the client disconnects.
func (h *AuthHandler) SessionStream(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	router := session.NewRouter(h.provider, h.accounts, sess.ID, sess.Identity, loggerFrom(c))
	defer router.Close()
	states, unsubscribe := router.Subscribe()
	defer unsubscribe()

	streamSnapshots(c, "state", states, func(s session.State) (any, bool, error) {
		return s, s.Status == session.StatusUnauthenticated, nil
	})
}

// Me returns the authenticated caller's account.
func (h *AuthHandler) Me(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, MeResponse{Account: caller.Account, MustChangePassword: caller.MustChangePassword()})
}
