package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackline/sprint-insights/internal/analytics"
	"github.com/trackline/sprint-insights/internal/health"
	"github.com/trackline/sprint-insights/internal/store"
)

const apiSeed = `
sprints:
  - id: s1
    projectId: proj-1
    name: Sprint 1
    status: completed
    startDate: 2026-03-01T00:00:00Z
    endDate: 2026-03-15T00:00:00Z
    createdAt: 2026-02-28T00:00:00Z
    updatedAt: 2026-03-15T00:00:00Z
issues:
  - id: i1
    projectId: proj-1
    sprintId: s1
    status: done
    type: story
    priority: high
    storyPoints: "8"
    assigneeId: alice
    createdAt: 2026-03-01T00:00:00Z
    updatedAt: 2026-03-10T00:00:00Z
  - id: i2
    projectId: proj-1
    sprintId: s1
    status: todo
    storyPoints: "5"
    createdAt: 2026-03-02T00:00:00Z
    updatedAt: 2026-03-02T00:00:00Z
`

func newTestServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.ApplySeed(context.Background(), []byte(apiSeed)))

	engine := analytics.New(st, zerolog.Nop())
	checker := health.NewChecker(zerolog.Nop())
	checker.Register("store", func(ctx context.Context) health.Status {
		if err := st.Ping(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	handlers := NewHandlers(engine, st, checker, Defaults{
		CFDDays:       30,
		VelocityCount: 12,
		MetricsCount:  6,
	}, zerolog.Nop())

	return NewServer(cfg, handlers, nil, zerolog.Nop())
}

func doJSON(t *testing.T, s *Server, method, path, body string, hdr map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func TestProbes(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = doJSON(t, s, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, ServerConfig{})
	resp, _ := doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestBurndownEndpoint(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/burndown", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "s1", body["sprintId"])

	series, ok := body["series"].([]any)
	require.True(t, ok)
	assert.Len(t, series, 15) // 14-day sprint, inclusive endpoints

	first, ok := series[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 13.0, first["remainingWork"])
}

func TestSprintScopeEndpoint(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/scope", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 13.0, body["totalScope"])
	assert.Equal(t, 8.0, body["completedWork"])
}

func TestVelocityEndpoint(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/projects/proj-1/velocity", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sprints, ok := body["sprints"].([]any)
	require.True(t, ok)
	require.Len(t, sprints, 1)
	record := sprints[0].(map[string]any)
	assert.Equal(t, 8.0, record["completedPoints"])
}

func TestDashboardEndpoint(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/projects/proj-1/dashboard", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "proj-1", body["projectId"])
	assert.NotNil(t, body["velocityTrends"])
	assert.NotNil(t, body["velocityForecast"])
}

func TestForecastEndpoint_InvalidRemainingPoints(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/projects/proj-1/velocity/forecast?remainingPoints=banana", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_remaining_points", body["type"])
}

func TestForecastEndpoint_InvalidTargetDate(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/projects/proj-1/velocity/forecast?remainingPoints=10&targetDate=soon", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_target_date", body["type"])
}

func TestIssueCRUD(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, created := doJSON(t, s, http.MethodPost, "/api/v1/issues",
		`{"projectId": "proj-1", "storyPoints": "M", "type": "task"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "todo", created["status"]) // defaulted

	resp, got := doJSON(t, s, http.MethodGet, "/api/v1/issues/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "M", got["storyPoints"])

	resp, patched := doJSON(t, s, http.MethodPatch, "/api/v1/issues/"+id,
		`{"status": "done", "assigneeId": "bob"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "done", patched["status"])
	assert.Equal(t, "bob", patched["assigneeId"])
	assert.Equal(t, "M", patched["storyPoints"]) // untouched fields survive
}

func TestCreateIssue_RequiresProject(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, body := doJSON(t, s, http.MethodPost, "/api/v1/issues", `{"status": "todo"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_project", body["type"])
}

func TestGetIssue_NotFound(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/issues/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "issue_not_found", body["type"])
	assert.Equal(t, "/api/v1/issues/nope", body["instance"])
}

func TestSprintCRUD(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	resp, created := doJSON(t, s, http.MethodPost, "/api/v1/sprints",
		`{"projectId": "proj-1", "name": "Sprint 2"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "future", created["status"])

	resp, patched := doJSON(t, s, http.MethodPatch, "/api/v1/sprints/"+id,
		`{"status": "active", "startDate": "2026-04-01T00:00:00Z"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", patched["status"])
	assert.Equal(t, "Sprint 2", patched["name"])
}

func TestAuthAPIKey(t *testing.T) {
	s := newTestServer(t, ServerConfig{
		AuthConfig: AuthConfig{Mode: "api-key", APIKey: "sekrit"},
	})

	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/scope", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing_auth", body["type"])

	resp, body = doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/scope", "",
		map[string]string{"Authorization": "Basic sekrit"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_auth_scheme", body["type"])

	resp, body = doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/scope", "",
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", body["type"])

	resp, _ = doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/scope", "",
		map[string]string{"Authorization": "Bearer sekrit"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Probes stay open.
	resp, _ = doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthJWT(t *testing.T) {
	const secret = "jwt-secret"
	s := newTestServer(t, ServerConfig{
		AuthConfig: AuthConfig{Mode: "jwt", JWTSecret: secret},
	})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	resp, _ := doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/scope", "",
		map[string]string{"Authorization": "Bearer " + signed})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	forged, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/scope", "",
		map[string]string{"Authorization": "Bearer " + forged})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", body["type"])
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, ServerConfig{
		RateLimit: RateLimitConfig{RPS: 1, Burst: 2},
	})

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/scope", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := doJSON(t, s, http.MethodGet, "/api/v1/sprints/s1/scope", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body["type"])

	// Probes are exempt.
	resp, _ = doJSON(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestValidateJWT_RejectsWrongAlg(t *testing.T) {
	// alg=none tokens must never pass.
	_, err := validateJWT("eyJhbGciOiJub25lIn0.eyJzdWIiOiJ4In0.", "secret")
	assert.Error(t, err)
}
