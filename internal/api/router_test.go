package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clanhub/api/internal/api/handlers"
	"github.com/clanhub/api/internal/metrics"
	"github.com/clanhub/api/internal/models"
	"github.com/clanhub/api/internal/repository"
	"github.com/clanhub/api/internal/services"
	"github.com/clanhub/api/pkg/config"
	"github.com/clanhub/api/pkg/database"
	"github.com/clanhub/api/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Set(zap.NewNop())
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Meta *struct {
		RequestID string `json:"request_id"`
		Total     int    `json:"total"`
	} `json:"meta"`
}

type testServer struct {
	handler http.Handler
	repo    repository.ClanRepository
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	cfg := &config.Config{
		AppEnv:            "test",
		DatabaseDriver:    "sqlite",
		DatabaseURL:       "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		DBMaxOpenConns:    1,
		DBMaxIdleConns:    1,
		DBConnMaxLifetime: time.Minute,
	}
	db, err := database.Open(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ready := database.NewInitializer(db, 0)
	require.NoError(t, ready.Run(context.Background()))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repo := repository.NewClanRepository(db)

	return &testServer{
		handler: NewRouter(Dependencies{
			ClansHandler:  handlers.NewClansHandler(services.NewClanService(repo, m)),
			HealthHandler: handlers.NewHealthHandler(ready),
			Metrics:       m,
			Gatherer:      reg,
			HMACSecret:    []byte(secret),
		}),
		repo: repo,
		reg:  reg,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, header ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 && strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func decodeClan(t *testing.T, raw json.RawMessage) models.Clan {
	t.Helper()
	var c models.Clan
	require.NoError(t, json.Unmarshal(raw, &c))
	return c
}

func decodeClans(t *testing.T, raw json.RawMessage) []models.Clan {
	t.Helper()
	var out []models.Clan
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestCreateClan(t *testing.T) {
	s := newTestServer(t, "")

	rr, env := s.do(t, http.MethodPost, "/clans", `{"name":"  Alpha  ","region":"TR"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.True(t, env.Success)
	c := decodeClan(t, env.Data)
	assert.Equal(t, "Alpha", c.Name)
	assert.Equal(t, "TR", c.Region)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.WithinDuration(t, time.Now(), c.CreatedAt, time.Minute)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr, env = s.do(t, http.MethodPost, "/clans", `{"name":"Alpha","region":"US"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Code)
	assert.Equal(t, c.ID.String(), env.Error.Details["existing_id"])

	list, err := s.repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateClanRejectsInvalidInput(t *testing.T) {
	s := newTestServer(t, "")

	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"malformed json", `{"name":`, "invalid json"},
		{"missing name", `{"region":"TR"}`, "name is required"},
		{"blank name", `{"name":"   ","region":"TR"}`, "name is required"},
		{"lowercase region", `{"name":"Beta","region":"tr"}`, "region must be exactly 2 uppercase letters"},
		{"long region", `{"name":"Beta","region":"TRK"}`, "region must be exactly 2 uppercase letters"},
		{"long name", `{"name":"` + strings.Repeat("x", 121) + `","region":"TR"}`, "name must be at most 120 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := s.do(t, http.MethodPost, "/clans", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "invalid", env.Error.Code)
			assert.Equal(t, tc.msg, env.Error.Message)
		})
	}

	list, err := s.repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListClansNewestFirst(t *testing.T) {
	s := newTestServer(t, "")
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Old", "Middle", "New"} {
		_, err := s.repo.InsertIfAbsent(ctx, &models.Clan{Name: name, Region: "EU", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	rr, env := s.do(t, http.MethodGet, "/clans", "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeClans(t, env.Data)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"New", "Middle", "Old"}, []string{got[0].Name, got[1].Name, got[2].Name})
	require.NotNil(t, env.Meta)
	assert.Equal(t, 3, env.Meta.Total)
}

func TestListClansEmptyIsArray(t *testing.T) {
	s := newTestServer(t, "")
	rr, _ := s.do(t, http.MethodGet, "/clans", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"data":[]`)
}

func TestSearchClans(t *testing.T) {
	s := newTestServer(t, "")
	for _, body := range []string{
		`{"name":"Alpha Wolves","region":"TR"}`,
		`{"name":"alphabet","region":"US"}`,
		`{"name":"Beta","region":"EU"}`,
	} {
		rr, _ := s.do(t, http.MethodPost, "/clans", body)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr, env := s.do(t, http.MethodGet, "/clans/search?name=ALP", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeClans(t, env.Data), 2)

	rr, env = s.do(t, http.MethodGet, "/clans/search?name=zzz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeClans(t, env.Data))

	for _, q := range []string{"", "ab", "%20ab%20"} {
		rr, env = s.do(t, http.MethodGet, "/clans/search?name="+q, "")
		require.Equal(t, http.StatusBadRequest, rr.Code, q)
		assert.Equal(t, "name must be at least 3 characters", env.Error.Message)
	}
}

func TestGetAndDeleteClan(t *testing.T) {
	s := newTestServer(t, "")
	rr, env := s.do(t, http.MethodPost, "/clans", `{"name":"Gamma","region":"DE"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	c := decodeClan(t, env.Data)

	rr, env = s.do(t, http.MethodGet, "/clans/"+c.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Gamma", decodeClan(t, env.Data).Name)

	rr, _ = s.do(t, http.MethodDelete, "/clans/"+c.ID.String(), "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, rr.Body.Len())

	rr, env = s.do(t, http.MethodDelete, "/clans/"+c.ID.String(), "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", env.Error.Code)

	rr, _ = s.do(t, http.MethodGet, "/clans/"+c.ID.String(), "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr, env = s.do(t, http.MethodDelete, "/clans/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "id must be a UUID", env.Error.Message)

	rr, _ = s.do(t, http.MethodGet, "/clans/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, "")

	rr, env := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	rr, _ = s.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	s.do(t, http.MethodGet, "/clans", "")
	s.do(t, http.MethodPost, "/clans", `{"name":"Delta","region":"FR"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Regexp(t, `clans_http_requests_total\{method="GET",route="/clans/?",status="200"\} 1`, body)
	assert.Contains(t, body, `clans_operations_total{op="create",outcome="created"} 1`)
}

func TestMutatingRoutesRequireTokenWhenConfigured(t *testing.T) {
	const secret = "router-secret"
	s := newTestServer(t, secret)

	rr, _ := s.do(t, http.MethodPost, "/clans", `{"name":"Epsilon","region":"IT"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = s.do(t, http.MethodGet, "/clans", "")
	require.Equal(t, http.StatusOK, rr.Code)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "seed-bot",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	rr, env := s.do(t, http.MethodPost, "/clans", `{"name":"Epsilon","region":"IT"}`, "Authorization", "Bearer "+tok)
	require.Equal(t, http.StatusCreated, rr.Code)
	c := decodeClan(t, env.Data)

	rr, _ = s.do(t, http.MethodDelete, "/clans/"+c.ID.String(), "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	rr, _ = s.do(t, http.MethodDelete, "/clans/"+c.ID.String(), "", "Authorization", "Bearer "+tok)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestPanickingHandlerIsCountedAs500(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewRouter(Dependencies{
		ClansHandler:  handlers.NewClansHandler(nil),
		HealthHandler: handlers.NewHealthHandler(nil),
		Metrics:       metrics.New(reg),
		Gatherer:      reg,
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clans", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Regexp(t, `clans_http_requests_total\{method="GET",route="/clans/?",status="500"\} 1`, rr.Body.String())
}

func TestDocsRoutes(t *testing.T) {
	s := newTestServer(t, "")

	rr, _ := s.do(t, http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Contains(t, doc.Paths, "/clans")
	assert.Contains(t, doc.Paths, "/clans/search")
	assert.Contains(t, doc.Paths["/clans/{id}"], "delete")

	req := httptest.NewRequest(http.MethodGet, "/docs/index.html", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/openapi.json")
}

func TestRateLimitKeysOnForwardedAddressOnlyWhenTrusted(t *testing.T) {
	hit := func(trust bool) []int {
		h := NewRouter(Dependencies{
			ClansHandler:   handlers.NewClansHandler(nil),
			HealthHandler:  handlers.NewHealthHandler(nil),
			RateLimitRPS:   1,
			RateLimitBurst: 1,
			TrustProxy:     trust,
		})
		codes := []int{}
		for _, fwd := range []string{"203.0.113.1", "203.0.113.2"} {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.RemoteAddr = "10.0.0.1:4000"
			req.Header.Set("X-Forwarded-For", fwd)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			codes = append(codes, rr.Code)
		}
		return codes
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, hit(false))
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, hit(true))
}

func TestUnknownRouteIsCountedAsUnmatched(t *testing.T) {
	s := newTestServer(t, "")
	rr, _ := s.do(t, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var buf bytes.Buffer
	mfs, err := s.reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		buf.WriteString(mf.GetName())
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				buf.WriteString(" " + lp.GetValue())
			}
		}
	}
	assert.Contains(t, buf.String(), "unmatched")
}
