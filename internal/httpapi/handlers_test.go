package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tutordesk/internal/audit"
	"tutordesk/internal/auth"
	"tutordesk/internal/config"
	"tutordesk/internal/directory"
	"tutordesk/internal/history"
	"tutordesk/internal/rbac"
	"tutordesk/internal/session"
	"tutordesk/internal/telephony"
)

// scriptBridge exposes the sink so tests steer call outcomes.
type scriptBridge struct {
	mu   sync.Mutex
	sink telephony.EventSink
	call *scriptCall
}

type scriptCall struct{}

func (c *scriptCall) Hangup(ctx context.Context) error { return nil }

func (b *scriptBridge) Name() string { return "script" }

func (b *scriptBridge) Place(ctx context.Context, req telephony.PlaceRequest, sink telephony.EventSink) (telephony.ActiveCall, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
	b.call = &scriptCall{}
	return b.call, nil
}

func (b *scriptBridge) events() telephony.EventSink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sink
}

type testEnv struct {
	router      *gin.Engine
	bridge      *scriptBridge
	historyRepo *history.MemoryRepo
	auditRepo   *audit.MemoryRepo
	directory   *directory.Service

	adminToken    string
	operatorToken string
	operatorID    string
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCalling(t, true)
}

// newTestEnvWithCalling with callingEnabled false mirrors a deployment
// whose bridge configuration was rejected at startup: the session manager
// has no workflow and refuses attempts while everything else serves.
func newTestEnvWithCalling(t *testing.T, callingEnabled bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}

	env := &testEnv{
		bridge:      &scriptBridge{},
		historyRepo: history.NewMemoryRepo(),
		auditRepo:   audit.NewMemoryRepo(),
	}
	env.directory = directory.NewService(directory.NewMemoryRepo(), "US")

	ctx := context.Background()
	admin, err := env.directory.CreateStaff(ctx, directory.CreateStaffInput{
		Name: "Ms. Root", Email: "root@example.com", Role: rbac.RoleAdmin, Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	operator, err := env.directory.CreateStaff(ctx, directory.CreateStaffInput{
		Name: "Ms. Amina", Email: "amina@example.com", Role: rbac.RoleOperator, Password: "another horse",
	})
	if err != nil {
		t.Fatalf("create operator: %v", err)
	}
	env.operatorID = operator.ID

	adminPair, err := mgr.IssuePair(time.Now(), admin.ID, admin.Name, admin.Role)
	if err != nil {
		t.Fatalf("issue admin pair: %v", err)
	}
	operatorPair, err := mgr.IssuePair(time.Now(), operator.ID, operator.Name, operator.Role)
	if err != nil {
		t.Fatalf("issue operator pair: %v", err)
	}
	env.adminToken = adminPair.AccessToken
	env.operatorToken = operatorPair.AccessToken

	historySvc := history.NewService(env.historyRepo)
	sessions := session.NewManager(nil, nil)
	if callingEnabled {
		wf := &session.Workflow{
			Bridge:       env.bridge,
			History:      historySvc,
			CallerNumber: "+15550001111",
			Ticker:       func(time.Duration, func()) func() { return func() {} },
		}
		sessions = session.NewManager(wf, nil)
	}

	h := Handlers{
		Auth:      mgr,
		Directory: env.directory,
		History:   historySvc,
		Sessions:  sessions,
		Audit:     audit.NewService(env.auditRepo, nil),
	}

	r := gin.New()
	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	api := r.Group("/v1")
	api.Use(auth.RequireAccessToken(mgr))
	{
		api.GET("/me", h.Me)
		api.GET("/students", h.ListStudents)
		api.POST("/students", h.CreateStudent)
		api.GET("/students/:id", h.GetStudent)
		api.PATCH("/students/:id", h.UpdateStudent)
		api.DELETE("/students/:id", h.DeleteStudent)
		api.POST("/staff", rbac.RequireAdmin(), h.CreateStaff)
		api.GET("/history", h.ListHistory)
		api.GET("/history/summary", h.HistorySummary)
		api.DELETE("/history", rbac.RequireAdmin(), h.ClearHistory)
		api.POST("/calls/start", rbac.RequireAnyRole(rbac.RoleOperator), h.StartCall)
		api.GET("/calls/current", rbac.RequireAnyRole(rbac.RoleOperator), h.CurrentCall)
		api.POST("/calls/cancel", rbac.RequireAnyRole(rbac.RoleOperator), h.CancelCall)
		api.POST("/calls/hangup", rbac.RequireAnyRole(rbac.RoleOperator), h.HangupCall)
		api.POST("/calls/reset", rbac.RequireAnyRole(rbac.RoleOperator), h.ResetCall)
	}
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestLoginIssuesTokens(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"root@example.com","password":"correct horse"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		Role         string `json:"role"`
	}
	decode(t, w, &resp)
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.Role != rbac.RoleAdmin {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	me := env.do(t, http.MethodGet, "/v1/me", resp.AccessToken, "")
	if me.Code != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d", me.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"root@example.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	// unknown accounts look identical to wrong passwords
	w = env.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"nobody@example.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown account, got %d", w.Code)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	env := newTestEnv(t)

	login := env.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"amina@example.com","password":"another horse"}`)
	var lr struct {
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, login, &lr)

	w := env.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+lr.RefreshToken+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rr struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &rr)
	if rr.AccessToken == "" {
		t.Fatalf("expected a fresh access token")
	}
}

func TestStudentLifecycleIsAudited(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/students", env.adminToken,
		`{"name":"Omar","phone":"(212) 555-0199","parent":"Mrs. Haddad"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var student directory.Student
	decode(t, w, &student)
	if student.Phone != "+12125550199" {
		t.Fatalf("expected normalized phone, got %q", student.Phone)
	}
	if student.AddedBy != "Ms. Root" {
		t.Fatalf("expected actor snapshot, got %q", student.AddedBy)
	}

	w = env.do(t, http.MethodPatch, "/v1/students/"+student.ID, env.adminToken, `{"notes":"prefers evenings"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodDelete, "/v1/students/"+student.ID, env.adminToken, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/v1/students/"+student.ID, env.adminToken, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}

	events, err := env.auditRepo.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("audit list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 audit events, got %d", len(events))
	}
	if events[0].Action != audit.ActionStudentDelete || events[0].TargetName != "Omar" {
		t.Fatalf("unexpected newest audit event: %+v", events[0])
	}
}

func TestStaffRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/staff", env.operatorToken,
		`{"name":"X","email":"x@example.com","role":"operator","password":"longenough"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/v1/staff", env.adminToken,
		`{"name":"X","email":"x@example.com","role":"operator","password":"longenough"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDuplicateStaffEmailConflicts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/staff", env.adminToken,
		`{"name":"Dup","email":"root@example.com","role":"operator","password":"longenough"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestCallLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	create := env.do(t, http.MethodPost, "/v1/students", env.adminToken,
		`{"name":"Omar","phone":"+12125550199"}`)
	var student directory.Student
	decode(t, create, &student)

	w := env.do(t, http.MethodPost, "/v1/calls/start", env.operatorToken, `{"student_id":"`+student.ID+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var snap session.Snapshot
	decode(t, w, &snap)
	if snap.State != session.StateDialing || snap.StudentName != "Omar" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// a second start for the same operator conflicts
	w = env.do(t, http.MethodPost, "/v1/calls/start", env.operatorToken, `{"student_id":"`+student.ID+`"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while dialing, got %d", w.Code)
	}

	env.bridge.events().Connected()

	w = env.do(t, http.MethodPost, "/v1/calls/hangup", env.operatorToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	decode(t, w, &snap)
	if snap.State != session.StateFinished || snap.Outcome != history.CallStatusCompleted {
		t.Fatalf("unexpected terminal snapshot: %+v", snap)
	}

	w = env.do(t, http.MethodPost, "/v1/calls/reset", env.operatorToken, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	list := env.do(t, http.MethodGet, "/v1/history", env.operatorToken, "")
	var lr struct {
		Count int `json:"count"`
	}
	decode(t, list, &lr)
	if lr.Count != 1 {
		t.Fatalf("expected one history record, got %d", lr.Count)
	}
}

func TestCurrentCallWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/v1/calls/current", env.operatorToken, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStartCallUnknownStudent(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/v1/calls/start", env.operatorToken, `{"student_id":"missing"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestClearHistoryIsAdminOnlyAndAudited(t *testing.T) {
	env := newTestEnv(t)

	if err := env.historyRepo.Append(context.Background(), history.CallRecord{
		ID: "r1", StudentName: "Omar", StaffName: "T",
		Status: history.CallStatusCompleted, DurationSeconds: 45,
		StartedAt: time.Now(), CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := env.do(t, http.MethodDelete, "/v1/history", env.operatorToken, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator, got %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/v1/history", env.adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Removed int `json:"removed"`
	}
	decode(t, w, &resp)
	if resp.Removed != 1 {
		t.Fatalf("expected 1 removed, got %d", resp.Removed)
	}

	events, _ := env.auditRepo.List(context.Background(), 10)
	if len(events) != 1 || events[0].Action != audit.ActionHistoryClear {
		t.Fatalf("expected a history_clear audit event, got %+v", events)
	}
}

func TestCallingDisabledKeepsRosterServing(t *testing.T) {
	env := newTestEnvWithCalling(t, false)

	w := env.do(t, http.MethodPost, "/v1/students", env.adminToken,
		`{"name":"Omar","phone":"+12125550199"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("roster must serve with calling disabled, got %d: %s", w.Code, w.Body.String())
	}
	var student directory.Student
	decode(t, w, &student)

	w = env.do(t, http.MethodGet, "/v1/history", env.operatorToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("history must serve with calling disabled, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/v1/calls/start", env.operatorToken, `{"student_id":"`+student.ID+`"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with calling disabled, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/v1/students", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
