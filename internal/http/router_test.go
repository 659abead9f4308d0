package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/cache"
	"github.com/geocoder89/taskmaster/internal/hierarchy"
	apphttp "github.com/geocoder89/taskmaster/internal/http"
	"github.com/geocoder89/taskmaster/internal/http/handlers"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/geocoder89/taskmaster/internal/repo/memory"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	prom := observability.NewProm(prometheus.NewRegistry())
	store := memory.New()
	revoked := auth.NewRevocationCache(cache.NewMemory(), time.Second)
	tokens := auth.NewTokenService("0123456789abcdef0123456789abcdef", time.Hour, revoked, auth.WithLogger(log), auth.WithMetrics(prom))

	creds, err := auth.NewCredentialStore(store.Users(), tokens, bcrypt.MinCost, log)
	if err != nil {
		t.Fatalf("NewCredentialStore: %v", err)
	}

	router := apphttp.NewRouter(apphttp.Deps{
		Log:         log,
		Env:         "test",
		Prom:        prom,
		Tokens:      tokens,
		Creds:       creds,
		Users:       store.Users(),
		Orgs:        store.Organizations(),
		Teams:       store.Teams(),
		Bugs:        store.Bugs(),
		Deleter:     hierarchy.NewCoordinator(store, log, prom),
		AuthLimiter: middlewares.NewRateLimiter(1000, 1000),
		Checks:      map[string]handlers.Pinger{"store": store.Ping, "cache": revoked.Ping},
	})

	return &testServer{t: t, router: router, store: store}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) expect(w *httptest.ResponseRecorder, status int, out any) {
	s.t.Helper()

	if w.Code != status {
		s.t.Fatalf("got status %d, want %d, body=%s", w.Code, status, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			s.t.Fatalf("unmarshal: %v body=%s", err, w.Body.String())
		}
	}
}

func (s *testServer) signupAndLogin(first, email string) (userID, token string) {
	s.t.Helper()

	var u struct {
		ID string `json:"id"`
	}
	s.expect(s.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"firstName": first, "lastName": "Lee", "email": email, "password": "secret12",
	}), http.StatusCreated, &u)

	var tok struct {
		Token string `json:"token"`
	}
	s.expect(s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": "secret12",
	}), http.StatusOK, &tok)

	return u.ID, tok.Token
}

type errorBody struct {
	Error handlers.APIError `json:"error"`
}

func TestSignupErrors(t *testing.T) {
	s := newTestServer(t)
	s.signupAndLogin("Ann", "ann@example.com")

	tests := []struct {
		name     string
		body     map[string]string
		wantCode int
		wantErr  string
	}{
		{"missing name", map[string]string{"firstName": "", "lastName": "Lee", "email": "x@example.com", "password": "secret12"}, http.StatusBadRequest, "missing_name"},
		{"bad email", map[string]string{"firstName": "A", "lastName": "Lee", "email": "nope", "password": "secret12"}, http.StatusBadRequest, "invalid_format"},
		{"weak password", map[string]string{"firstName": "A", "lastName": "Lee", "email": "y@example.com", "password": "abcdefgh"}, http.StatusBadRequest, "invalid_format"},
		{"duplicate", map[string]string{"firstName": "A", "lastName": "Lee", "email": "ANN@example.com", "password": "secret12"}, http.StatusConflict, "email_taken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			s.expect(s.do(http.MethodPost, "/auth/signup", "", tt.body), tt.wantCode, &body)
			if body.Error.Code != tt.wantErr {
				t.Fatalf("code = %q, want %q", body.Error.Code, tt.wantErr)
			}
		})
	}
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	s := newTestServer(t)
	s.signupAndLogin("Ann", "real@example.com")

	a := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "nouser@example.com", "password": "whatever1"})
	b := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "real@example.com", "password": "wrongpass1"})

	var ea, eb errorBody
	s.expect(a, http.StatusUnauthorized, &ea)
	s.expect(b, http.StatusUnauthorized, &eb)

	if ea.Error.Code != eb.Error.Code || ea.Error.Message != eb.Error.Message {
		t.Fatalf("login failures differ: %+v vs %+v", ea.Error, eb.Error)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signupAndLogin("Ann", "ann@example.com")

	s.expect(s.do(http.MethodGet, "/auth/me", token, nil), http.StatusOK, nil)
	s.expect(s.do(http.MethodPost, "/auth/logout", token, nil), http.StatusNoContent, nil)

	var body errorBody
	s.expect(s.do(http.MethodGet, "/auth/me", token, nil), http.StatusUnauthorized, &body)
	if body.Error.Code != "token_revoked" {
		t.Fatalf("code = %q, want token_revoked", body.Error.Code)
	}
}

func TestDeleteAccountInvalidatesEveryToken(t *testing.T) {
	s := newTestServer(t)
	_, first := s.signupAndLogin("Dev", "dev@example.com")

	var tok struct {
		Token string `json:"token"`
	}
	s.expect(s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "dev@example.com", "password": "secret12",
	}), http.StatusOK, &tok)
	second := tok.Token
	if second == first {
		t.Fatalf("expected two distinct sessions")
	}

	s.expect(s.do(http.MethodDelete, "/users/me", first, nil), http.StatusOK, nil)

	// the session that was not used for the delete must die with the account too
	var body errorBody
	s.expect(s.do(http.MethodGet, "/orgs", second, nil), http.StatusUnauthorized, &body)
	if body.Error.Code != "unauthorized" {
		t.Fatalf("code = %q, want unauthorized", body.Error.Code)
	}
}

func TestMissingOrBadToken(t *testing.T) {
	s := newTestServer(t)

	s.expect(s.do(http.MethodGet, "/orgs", "", nil), http.StatusUnauthorized, nil)
	s.expect(s.do(http.MethodGet, "/orgs", "not.a.token", nil), http.StatusUnauthorized, nil)
}

func TestOrgTeamBugFlow(t *testing.T) {
	s := newTestServer(t)
	_, adminTok := s.signupAndLogin("Admin", "admin@example.com")
	devID, devTok := s.signupAndLogin("Dev", "dev@example.com")
	_, outsiderTok := s.signupAndLogin("Out", "out@example.com")

	var org struct {
		ID string `json:"id"`
	}
	s.expect(s.do(http.MethodPost, "/orgs", adminTok, map[string]string{"name": "Acme"}), http.StatusCreated, &org)

	// only admins add members
	s.expect(s.do(http.MethodPost, "/orgs/"+org.ID+"/members", devTok, map[string]string{"userId": devID, "role": "user"}), http.StatusForbidden, nil)
	s.expect(s.do(http.MethodPost, "/orgs/"+org.ID+"/members", adminTok, map[string]string{"userId": devID, "role": "user"}), http.StatusCreated, nil)
	s.expect(s.do(http.MethodPost, "/orgs/"+org.ID+"/members", adminTok, map[string]string{"userId": devID, "role": "user"}), http.StatusConflict, nil)

	var members struct {
		Items []struct {
			UserID string `json:"userId"`
			Role   string `json:"role"`
		} `json:"items"`
	}
	s.expect(s.do(http.MethodGet, "/orgs/"+org.ID+"/members", devTok, nil), http.StatusOK, &members)
	if len(members.Items) != 2 {
		t.Fatalf("expected 2 members, got %+v", members.Items)
	}
	s.expect(s.do(http.MethodGet, "/orgs/"+org.ID+"/members", outsiderTok, nil), http.StatusForbidden, nil)

	var tm struct {
		ID string `json:"id"`
	}
	s.expect(s.do(http.MethodPost, "/orgs/"+org.ID+"/teams", adminTok, map[string]string{"name": "Core"}), http.StatusCreated, &tm)
	s.expect(s.do(http.MethodPost, "/teams/"+tm.ID+"/members", adminTok, map[string]string{"userId": devID, "role": "developer"}), http.StatusCreated, nil)

	var b struct {
		ID         string  `json:"id"`
		ReporterID string  `json:"reporterId"`
		AssigneeID *string `json:"assigneeId"`
		Status     int     `json:"status"`
		Priority   int     `json:"priority"`
	}
	s.expect(s.do(http.MethodPost, "/teams/"+tm.ID+"/bugs", devTok, map[string]any{"description": "login broken", "priority": 3}), http.StatusCreated, &b)
	if b.ReporterID != devID || b.Priority != 3 {
		t.Fatalf("unexpected bug %+v", b)
	}
	s.expect(s.do(http.MethodGet, "/bugs/"+b.ID, outsiderTok, nil), http.StatusForbidden, nil)

	s.expect(s.do(http.MethodPut, "/bugs/"+b.ID+"/assignee", adminTok, map[string]string{"assigneeId": devID}), http.StatusOK, &b)
	if b.AssigneeID == nil || *b.AssigneeID != devID {
		t.Fatalf("assignee not set: %+v", b)
	}
	s.expect(s.do(http.MethodPut, "/bugs/"+b.ID+"/status", devTok, map[string]int{"status": 2}), http.StatusOK, &b)
	if b.Status != 2 {
		t.Fatalf("status = %d", b.Status)
	}
	s.expect(s.do(http.MethodPut, "/bugs/"+b.ID+"/priority", devTok, map[string]int{"priority": 9}), http.StatusBadRequest, nil)

	// deleting the account strips memberships, detaches bugs and kills the token
	s.expect(s.do(http.MethodDelete, "/users/me", devTok, nil), http.StatusOK, nil)
	s.expect(s.do(http.MethodGet, "/auth/me", devTok, nil), http.StatusUnauthorized, nil)

	var detached struct {
		ReporterID string  `json:"reporterId"`
		AssigneeID *string `json:"assigneeId"`
	}
	s.expect(s.do(http.MethodGet, "/bugs/"+b.ID, adminTok, nil), http.StatusOK, &detached)
	if detached.AssigneeID != nil || detached.ReporterID != "" {
		t.Fatalf("bug still references deleted user: %+v", detached)
	}

	s.expect(s.do(http.MethodGet, "/orgs/"+org.ID+"/members", adminTok, nil), http.StatusOK, &members)
	if len(members.Items) != 1 {
		t.Fatalf("expected only admin left, got %+v", members.Items)
	}

	s.expect(s.do(http.MethodDelete, "/orgs/"+org.ID, adminTok, nil), http.StatusOK, nil)
	s.expect(s.do(http.MethodGet, "/teams/"+tm.ID, adminTok, nil), http.StatusNotFound, nil)
	s.expect(s.do(http.MethodGet, "/bugs/"+b.ID, adminTok, nil), http.StatusNotFound, nil)

	var orgs struct {
		Items []any `json:"items"`
	}
	s.expect(s.do(http.MethodGet, "/orgs", adminTok, nil), http.StatusOK, &orgs)
	if len(orgs.Items) != 0 {
		t.Fatalf("expected no orgs, got %v", orgs.Items)
	}
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	s.expect(s.do(http.MethodGet, "/readyz", "", nil), http.StatusOK, &body)

	if body.Status != "ready" || body.Checks["store"] != "up" || body.Checks["cache"] != "up" {
		t.Fatalf("unexpected readiness %+v", body)
	}
}
