package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/access"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/repository/memory"
	"alcyxob/fitness-coach/internal/service"
	"alcyxob/fitness-coach/internal/session"
	"alcyxob/fitness-coach/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	engine   *gin.Engine
	store    *memory.Store
	clock    *testClock
	provider identity.Provider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	clock := &testClock{now: time.Now().Add(-3 * time.Hour).Truncate(time.Second)}
	provider := identity.NewProvider(store.Credentials(), "api-test-secret", 24*time.Hour, logger, identity.WithClock(clock.Now))
	scope := access.NewScope(store.Students())
	files := storage.Disabled()

	engine := gin.New()
	engine.Use(gin.Recovery(), TraceMiddleware(), RequestLogger(logger))
	SetupRoutes(engine, Services{
		Auth:     service.NewAuthService(provider, store.Accounts(), store.Students(), scope, logger),
		Students: service.NewStudentService(store.Students(), store.Routines(), store.Injuries(), store.Progress(), files, scope, logger),
		Trainers: service.NewTrainerService(store.Students(), store.Routines(), store.Injuries(), store.Progress(), files, scope, logger),
		Admin:    service.NewAdminService(provider, store.Accounts(), store.Students(), store.Trainers(), logger),
		Provider: provider,
		Accounts: store.Accounts(),
	})
	return &testServer{engine: engine, store: store, clock: clock, provider: provider}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]any](t, rec)["error"].(string)
}

func (s *testServer) login(t *testing.T, email, password string) LoginResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[LoginResponse](t, rec)
}

func (s *testServer) register(t *testing.T, email string) *domain.Student {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", service.RegisterStudentInput{
		Name: "Ana", Email: email, Password: "secret1",
		Age: "28", Gender: "female", Weight: "61", Height: "168",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	student := decode[domain.Student](t, rec)
	return &student
}

// adminToken provisions an adminmaster the way the operator CLI does and signs it in.
func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	ident, err := s.provider.SignUp(ctx, "root@example.com", "rootpass")
	require.NoError(t, err)
	require.NoError(t, s.store.Accounts().Create(ctx, &domain.Account{ID: ident.ID, Name: "Root", Email: "root@example.com", Role: domain.RoleAdmin}))
	return s.login(t, "root@example.com", "rootpass").Token
}

func (s *testServer) createTrainer(t *testing.T, adminToken, email string) *domain.Trainer {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/admin/trainers", adminToken, service.TrainerInput{
		Name: "Tom", Email: email, Password: "temp123", Age: "35",
		Phone: "555-0100", Specialty: "strength", Availability: "Mon-Fri, 9am - 6pm",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	trainer := decode[domain.Trainer](t, rec)
	return &trainer
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(TraceHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceHeader, "trace-123")
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get(TraceHeader))
}

func TestRegisterLoginAndSession(t *testing.T) {
	s := newTestServer(t)
	student := s.register(t, "ana@example.com")
	assert.Equal(t, "ana@example.com", student.Email)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", service.RegisterStudentInput{Name: "Ana"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please fill in all fields.", errorMessage(t, rec))

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not registered. Please sign up.", errorMessage(t, rec))
	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "ana@example.com", Password: "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect password. Try again.", errorMessage(t, rec))

	login := s.login(t, "ana@example.com", "secret1")
	assert.Equal(t, session.StatusStudent, login.State.Status)
	assert.Equal(t, domain.RoleStudent, login.State.Role)

	rec = s.do(t, http.MethodGet, "/api/v1/session", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.StatusStudent, decode[session.State](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/v1/session", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.StatusUnauthenticated, decode[session.State](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/v1/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[MeResponse](t, rec)
	assert.Equal(t, student.ID, me.Account.ID)
	assert.False(t, me.MustChangePassword)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/logout", login.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTrainerMustChangePasswordFirst(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	s.createTrainer(t, admin, "tom@example.com")

	s.clock.Advance(10 * time.Minute)
	login := s.login(t, "tom@example.com", "temp123")
	assert.Equal(t, session.StatusChangePassword, login.State.Status)

	rec := s.do(t, http.MethodGet, "/api/v1/trainer/students", login.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, service.ErrPasswordChangeRequired.Error(), errorMessage(t, rec))

	rec = s.do(t, http.MethodPut, "/api/v1/auth/password", login.Token, ChangePasswordRequest{NewPassword: "newpass1", Confirmation: "other"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "confirmation", decode[map[string]any](t, rec)["field"])

	rec = s.do(t, http.MethodPut, "/api/v1/auth/password", login.Token, ChangePasswordRequest{NewPassword: "newpass1", Confirmation: "newpass1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, session.StatusTrainer, decode[session.State](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/v1/trainer/students", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRoleGroups(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ana@example.com")
	token := s.login(t, "ana@example.com", "secret1").Token

	for _, path := range []string{"/api/v1/admin/trainers", "/api/v1/trainer/students"} {
		rec := s.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
	rec := s.do(t, http.MethodPut, "/api/v1/auth/password", token, ChangePasswordRequest{NewPassword: "newpass1", Confirmation: "newpass1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/student/routines/not-an-id", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignmentAndTrainerScope(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	student := s.register(t, "ana@example.com")
	trainer := s.createTrainer(t, admin, "tom@example.com")
	s.createTrainer(t, admin, "tim@example.com")
	assignPath := "/api/v1/admin/students/" + student.ID.Hex() + "/trainer"

	rec := s.do(t, http.MethodPut, assignPath, admin, AssignRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select a trainer first.", errorMessage(t, rec))

	for i := 0; i < 2; i++ {
		rec = s.do(t, http.MethodPut, assignPath, admin, AssignRequest{TrainerID: trainer.ID.Hex()})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assigned := decode[domain.Student](t, rec)
		require.NotNil(t, assigned.TrainerID)
		assert.Equal(t, trainer.ID, *assigned.TrainerID)
	}

	// Both trainers get past the first-login step.
	tokens := map[string]string{}
	s.clock.Advance(10 * time.Minute)
	for _, email := range []string{"tom@example.com", "tim@example.com"} {
		token := s.login(t, email, "temp123").Token
		rec = s.do(t, http.MethodPut, "/api/v1/auth/password", token, ChangePasswordRequest{NewPassword: "newpass1", Confirmation: "newpass1"})
		require.Equal(t, http.StatusOK, rec.Code)
		tokens[email] = token
	}

	routinesPath := "/api/v1/trainer/students/" + student.ID.Hex() + "/routines"
	body := service.RoutineInput{Date: "2024-05-01", Exercises: []domain.ExerciseEntry{{Name: "Squats"}}}
	rec = s.do(t, http.MethodPost, routinesPath, tokens["tim@example.com"], body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, routinesPath, tokens["tom@example.com"], body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	routine := decode[RoutineResponse](t, rec)
	assert.False(t, routine.Exercises[0].HasVideo)

	studentToken := s.login(t, "ana@example.com", "secret1").Token
	rec = s.do(t, http.MethodGet, "/api/v1/student/routines/"+routine.ID, studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Squats", decode[RoutineResponse](t, rec).Exercises[0].Name)

	// Video storage is not configured in this server.
	rec = s.do(t, http.MethodPost, "/api/v1/trainer/routines/"+routine.ID+"/exercises/0/video-upload", tokens["tom@example.com"],
		VideoUploadRequest{FileName: "squats.mp4", ContentType: "video/mp4"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestBodyValidation(t *testing.T) {
	valid := func() service.RegisterStudentInput {
		return service.RegisterStudentInput{
			Name: "Ana", Email: "ana@example.com", Password: "secret1",
			Age: "28", Gender: "female", Weight: "61", Height: "168",
		}
	}
	tests := []struct {
		name    string
		mutate  func(*service.RegisterStudentInput)
		field   string
		message string
	}{
		{"missing name", func(in *service.RegisterStudentInput) { in.Name = "" }, "", "Please fill in all fields."},
		{"bad email", func(in *service.RegisterStudentInput) { in.Email = "ana.example.com" }, "email", "Enter a valid email address."},
		{"short password", func(in *service.RegisterStudentInput) { in.Password = "12345" }, "password", "Password must be at least 6 characters."},
		{"age not a number", func(in *service.RegisterStudentInput) { in.Age = "old" }, "age", "Age must be a positive number."},
		{"negative weight", func(in *service.RegisterStudentInput) { in.Weight = "-3" }, "weight", "Weight must be a positive number."},
		{"zero height", func(in *service.RegisterStudentInput) { in.Height = "0" }, "height", "Height must be a positive number."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			in := valid()
			tt.mutate(&in)

			rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", in)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decode[map[string]any](t, rec)
			assert.Equal(t, tt.message, body["error"])
			assert.Equal(t, tt.field, body["field"])
		})
	}
}

func TestStudentRoutineBodyValidation(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ana@example.com")
	token := s.login(t, "ana@example.com", "secret1").Token

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"no exercises", `{"exercises":[]}`, "Add at least one exercise."},
		{"unnamed exercise", `{"exercises":[{"name":""}]}`, "Every exercise needs a name."},
		{"zero sets", `{"exercises":[{"name":"Squats","sets":0}]}`, "Sets and reps must be positive numbers."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/student/routines", token, json.RawMessage(tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.message, errorMessage(t, rec))
		})
	}

	rec := s.do(t, http.MethodGet, "/api/v1/student/routines", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestProgressSeriesMustBeComplete(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ana@example.com")
	token := s.login(t, "ana@example.com", "secret1").Token

	before := s.do(t, http.MethodGet, "/api/v1/student/progress", token, nil)
	require.Equal(t, http.StatusOK, before.Code)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"short and long series", `{"weeklyProgress":[1,2],"monthlyGoals":[1,2,3,4,5,6]}`, "weeklyProgress"},
		{"long monthly goals", `{"monthlyGoals":[1,2,3,4,5,6]}`, "monthlyGoals"},
		{"empty comparison", `{"routineComparison":[]}`, "routineComparison"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPatch, "/api/v1/student/progress", token, json.RawMessage(tt.body))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.field, decode[map[string]any](t, rec)["field"])

			after := s.do(t, http.MethodGet, "/api/v1/student/progress", token, nil)
			require.Equal(t, http.StatusOK, after.Code)
			assert.JSONEq(t, before.Body.String(), after.Body.String(), "rejected write leaves progress untouched")
		})
	}

	rec := s.do(t, http.MethodPatch, "/api/v1/student/progress", token, json.RawMessage(`{"monthlyGoals":[1,2,3]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[service.ProgressView](t, rec)
	require.True(t, view.Exists)
	assert.Equal(t, [3]float64{1, 2, 3}, view.Progress.MonthlyGoals)
	assert.Equal(t, [7]float64{}, view.Progress.WeeklyProgress)
}

func TestVideoUploadNeedsVideoContentType(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	student := s.register(t, "ana@example.com")
	trainer := s.createTrainer(t, admin, "tom@example.com")
	rec := s.do(t, http.MethodPut, "/api/v1/admin/students/"+student.ID.Hex()+"/trainer", admin, AssignRequest{TrainerID: trainer.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	s.clock.Advance(10 * time.Minute)
	token := s.login(t, "tom@example.com", "temp123").Token
	rec = s.do(t, http.MethodPut, "/api/v1/auth/password", token, ChangePasswordRequest{NewPassword: "newpass1", Confirmation: "newpass1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/trainer/students/"+student.ID.Hex()+"/routines", token,
		service.RoutineInput{Date: "2024-05-01", Exercises: []domain.ExerciseEntry{{Name: "Squats"}}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	routine := decode[RoutineResponse](t, rec)

	rec = s.do(t, http.MethodPost, "/api/v1/trainer/routines/"+routine.ID+"/exercises/0/video-upload", token,
		VideoUploadRequest{FileName: "squats.png", ContentType: "image/png"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only video files can be attached to an exercise.", errorMessage(t, rec))

	rec = s.do(t, http.MethodPut, "/api/v1/trainer/routines/"+routine.ID, token,
		service.RoutineInput{Date: "05/01/2024", Exercises: []domain.ExerciseEntry{{Name: "Squats"}}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Date must be in YYYY-MM-DD format.", errorMessage(t, rec))
}

func TestSessionStreamEndsOnSignOut(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.engine)
	defer srv.Close()

	s.register(t, "ana@example.com")
	token := s.login(t, "ana@example.com", "secret1").Token

	states := openStateStream(t, srv, token)
	assert.Equal(t, session.StatusStudent, nextSettled(t, states).Status)

	assert.Equal(t, http.StatusNoContent, postLogout(t, srv, token))
	assert.Equal(t, session.StatusUnauthenticated, nextSettled(t, states).Status)
	requireStreamEnds(t, states)
}

func TestUnroutableSessionsCanWatchAndSignOut(t *testing.T) {
	tests := []struct {
		name      string
		provision func(t *testing.T, s *testServer, id primitive.ObjectID)
		status    session.Status
		meStatus  int
	}{
		{
			name: "role not recognized",
			provision: func(t *testing.T, s *testServer, id primitive.ObjectID) {
				require.NoError(t, s.store.Accounts().Create(context.Background(), &domain.Account{ID: id, Email: "odd@example.com", Role: "coach"}))
			},
			status:   session.StatusRoleNotRecognized,
			meStatus: http.StatusForbidden,
		},
		{
			name:      "profile not provisioned",
			provision: func(*testing.T, *testServer, primitive.ObjectID) {},
			status:    session.StatusProfileNotProvisioned,
			meStatus:  http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			srv := httptest.NewServer(s.engine)
			defer srv.Close()

			ident, err := s.provider.SignUp(context.Background(), "odd@example.com", "secret1")
			require.NoError(t, err)
			tt.provision(t, s, ident.ID)
			login := s.login(t, "odd@example.com", "secret1")
			require.Equal(t, tt.status, login.State.Status)

			// Role-scoped routes still turn the session away.
			rec := s.do(t, http.MethodGet, "/api/v1/me", login.Token, nil)
			assert.Equal(t, tt.meStatus, rec.Code)

			states := openStateStream(t, srv, login.Token)
			assert.Equal(t, tt.status, nextSettled(t, states).Status)

			assert.Equal(t, http.StatusNoContent, postLogout(t, srv, login.Token))
			assert.Equal(t, session.StatusUnauthenticated, nextSettled(t, states).Status)
			requireStreamEnds(t, states)

			assert.Equal(t, http.StatusUnauthorized, postLogout(t, srv, login.Token))
		})
	}
}

func TestSessionRoutesNeedALiveToken(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"logout without token", http.MethodPost, "/api/v1/auth/logout", ""},
		{"logout with garbage", http.MethodPost, "/api/v1/auth/logout", "not-a-token"},
		{"stream without token", http.MethodGet, "/api/v1/session/stream", ""},
		{"stream with garbage", http.MethodGet, "/api/v1/session/stream", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

// openStateStream subscribes to the session stream; the request ends with the test.
func openStateStream(t *testing.T, srv *httptest.Server, token string) <-chan session.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/session/stream?token="+token, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return readStates(resp.Body)
}

func postLogout(t *testing.T, srv *httptest.Server, token string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func requireStreamEnds(t *testing.T, states <-chan session.State) {
	t.Helper()
	select {
	case _, open := <-states:
		assert.False(t, open, "stream ends after sign-out")
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after sign-out")
	}
}

// readStates decodes the data lines of a state event stream until the body ends.
func readStates(body io.Reader) <-chan session.State {
	out := make(chan session.State)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var state session.State
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &state); err != nil {
				return
			}
			out <- state
		}
	}()
	return out
}

func nextSettled(t *testing.T, states <-chan session.State) session.State {
	t.Helper()
	for {
		select {
		case state, ok := <-states:
			require.True(t, ok, "stream closed")
			if state.Status != session.StatusLoading {
				return state
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for state")
		}
	}
}
