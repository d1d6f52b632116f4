package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/service"
)

// Constants for context keys
const (
	ContextCallerKey  = "caller"
	ContextSessionKey = "session"
	ContextTokenKey   = "token"
	ContextTraceIDKey = "traceID"
	contextLoggerKey  = "logger"
)

// TraceHeader carries the per-request trace id in both directions.
const TraceHeader = "X-Trace-ID"

// TraceMiddleware assigns every request a trace id, reusing the caller's when it sent one.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(ContextTraceIDKey, traceID)
		c.Header(TraceHeader, traceID)
		c.Next()
	}
}

// RequestLogger logs one line per request and exposes a trace-scoped logger to handlers.
// Must run AFTER TraceMiddleware.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logger.With("traceId", c.GetString(ContextTraceIDKey))
		c.Set(contextLoggerKey, reqLogger)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		reqLogger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
		)
	}
}

func loggerFrom(c *gin.Context) *slog.Logger {
	if l, ok := c.Get(contextLoggerKey); ok {
		if logger, ok := l.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}

// bearerToken reads "Authorization: Bearer <token>". Streams opened by EventSource
// cannot set headers, so the token query parameter is accepted as a fallback.
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return c.Query("token"), nil
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errors.New("Authorization header format must be Bearer {token}")
	}
	return parts[1], nil
}

// AuthMiddleware resolves the bearer token to its caller.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, err.Error())
			return
		}
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		caller, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}

		// --- Token is valid ---
		c.Set(ContextCallerKey, caller)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// SessionMiddleware accepts any live session, whether or not its identity has a
// usable account. Signing out and watching the session state must work for
// identities the role router cannot route.
func SessionMiddleware(provider identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, err.Error())
			return
		}
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		ident, err := provider.CurrentIdentity(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		sid, err := provider.SessionID(token)
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(ContextSessionKey, &identity.Session{ID: sid, Token: token, Identity: ident})
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// RoleMiddleware creates middleware to check if user has the required role(s).
// Must run AFTER AuthMiddleware.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if !ok {
			abortWithError(c, http.StatusInternalServerError, "Caller not found in context")
			return
		}
		for _, allowed := range allowedRoles {
			if caller.Principal.Role == allowed {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "Access denied: Role '"+string(caller.Principal.Role)+"' does not have permission")
	}
}

// PasswordChangeGate keeps a trainer on the password step until the first-login password is replaced.
// Must run AFTER AuthMiddleware.
func PasswordChangeGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFromContext(c)
		if ok && caller.MustChangePassword() {
			respondError(c, service.ErrPasswordChangeRequired)
			return
		}
		c.Next()
	}
}

// Helper function to get the authenticated caller (used by handlers)
func callerFromContext(c *gin.Context) (*service.Caller, bool) {
	raw, exists := c.Get(ContextCallerKey)
	if !exists {
		return nil, false
	}
	caller, ok := raw.(*service.Caller)
	return caller, ok
}

func mustSession(c *gin.Context) (*identity.Session, bool) {
	raw, _ := c.Get(ContextSessionKey)
	sess, ok := raw.(*identity.Session)
	if !ok {
		abortWithError(c, http.StatusInternalServerError, "Session not found in context")
	}
	return sess, ok
}

// mustCaller returns the caller or aborts with 500; routes using it sit behind AuthMiddleware.
func mustCaller(c *gin.Context) (*service.Caller, bool) {
	caller, ok := callerFromContext(c)
	if !ok {
		abortWithError(c, http.StatusInternalServerError, "Caller not found in context")
	}
	return caller, ok
}
