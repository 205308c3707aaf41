package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/authz"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
)

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stores, err := OpenStores(context.Background(), cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(stores.Close)
	h, err := NewHandler(HandlerOptions{Config: cfg, Stores: stores, Logger: logger, NowUTC: fixedClock})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func baseConfig() Config {
	return Config{StoreBackend: StoreMemory, AuthzMode: authz.ModeEnforce, ActorTokenSecret: testSecret}
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := IssueActorToken(testSecret, types.Actor{UserID: "u-" + role, TeamID: "team-1", Role: role}, time.Hour, testClock)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func call(h http.Handler, method string, target string, auth string, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	r := httptest.NewRequest(method, target, rd)
	if auth != "" {
		r.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

const createBody = `{"matter_id": "m-1", "practice_area": "family-law", "task_id": "fl-child-support", "values": {}}`

func TestHandler_PublicRoutes(t *testing.T) {
	h := newTestHandler(t, baseConfig())

	rec := call(h, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}

	rec = call(h, http.MethodGet, "/api/v1/practice-areas", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	rec = call(h, http.MethodPost, "/api/v1/calc/deadline", "", `{"trigger": "2024-01-15", "offset_days": 90}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = call(h, http.MethodGet, "/api/v1/unknown", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}

	rec = call(h, http.MethodPut, "/api/v1/task-views", "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestHandler_TenantRoutesRequireActor(t *testing.T) {
	h := newTestHandler(t, baseConfig())

	rec := call(h, http.MethodGet, "/api/v1/task-instances?matter_id=m-1", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
	rec = call(h, http.MethodGet, "/api/v1/task-instances?matter_id=m-1", "Bearer garbage", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}
	rec = call(h, http.MethodGet, "/api/v1/task-instances?matter_id=m-1", "Basic dTpw", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rec.Code)
	}

	cfg := baseConfig()
	cfg.ActorTokenSecret = nil
	h = newTestHandler(t, cfg)
	rec = call(h, http.MethodGet, "/api/v1/task-instances?matter_id=m-1", bearer(t, authz.RoleAdmin), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unconfigured secret status=%d", rec.Code)
	}
}

func TestHandler_TaskInstanceFlow(t *testing.T) {
	h := newTestHandler(t, baseConfig())

	rec := call(h, http.MethodPost, "/api/v1/task-instances", bearer(t, authz.RoleAssistant), createBody)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("assistant create status=%d", rec.Code)
	}
	var env httperr.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Code != "forbidden" {
		t.Fatalf("env=%+v", env)
	}

	rec = call(h, http.MethodPost, "/api/v1/task-instances", bearer(t, authz.RoleParalegal), createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
	}
	var inst types.TaskInstance
	if err := json.Unmarshal(rec.Body.Bytes(), &inst); err != nil {
		t.Fatal(err)
	}
	if inst.TeamID != "team-1" || inst.CreatedBy != "u-paralegal" {
		t.Fatalf("inst=%+v", inst)
	}

	rec = call(h, http.MethodGet, "/api/v1/task-instances?matter_id=m-1", bearer(t, authz.RoleAssistant), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d", rec.Code)
	}

	rec = call(h, http.MethodDelete, "/api/v1/task-instances?id="+inst.ID, bearer(t, authz.RoleParalegal), "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("paralegal delete status=%d", rec.Code)
	}
	rec = call(h, http.MethodDelete, "/api/v1/task-instances?id="+inst.ID, bearer(t, authz.RoleAdmin), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin delete status=%d", rec.Code)
	}
}

func TestHandler_ShadowModeLogsButAllows(t *testing.T) {
	cfg := baseConfig()
	cfg.AuthzMode = authz.ModeShadow
	h := newTestHandler(t, cfg)

	rec := call(h, http.MethodPost, "/api/v1/task-instances", bearer(t, authz.RoleAssistant), createBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandler_RateLimited(t *testing.T) {
	cfg := baseConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	h := newTestHandler(t, cfg)

	if rec := call(h, http.MethodGet, "/api/v1/practice-areas", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec := call(h, http.MethodGet, "/api/v1/practice-areas", "", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec := call(h, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}
}

func TestNewHandler_RequiresStore(t *testing.T) {
	if _, err := NewHandler(HandlerOptions{Config: baseConfig()}); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenStores_UnknownBackend(t *testing.T) {
	if _, err := OpenStores(context.Background(), Config{StoreBackend: "sqlite"}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestAuthzRequirementForRoute(t *testing.T) {
	cases := []struct {
		method string
		path   string
		action string
		ok     bool
	}{
		{method: http.MethodGet, path: "/api/v1/task-instances", action: authz.ActionRead, ok: true},
		{method: http.MethodPost, path: "/api/v1/task-instances", action: authz.ActionCreate, ok: true},
		{method: http.MethodPatch, path: "/api/v1/task-instances", action: authz.ActionUpdate, ok: true},
		{method: http.MethodDelete, path: "/api/v1/task-instances", action: authz.ActionDelete, ok: true},
		{method: http.MethodPut, path: "/api/v1/task-instances", ok: false},
		{method: http.MethodGet, path: "/api/v1/task-instances/view", action: authz.ActionRead, ok: true},
		{method: http.MethodGet, path: "/api/v1/tasks", ok: false},
	}
	for _, tc := range cases {
		object, action, ok := authzRequirementForRoute(tc.method, tc.path)
		if ok != tc.ok || action != tc.action {
			t.Fatalf("%s %s: object=%s action=%s ok=%v", tc.method, tc.path, object, action, ok)
		}
		if ok && object != authz.ObjectTaskInstances {
			t.Fatalf("object=%s", object)
		}
	}
}
