package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"site-monitor/simulator/internal/auth"
	"site-monitor/simulator/internal/config"
	"site-monitor/simulator/internal/domain"
	"site-monitor/simulator/internal/engine"
	"site-monitor/simulator/internal/report"
	"site-monitor/simulator/internal/simulation"
	"site-monitor/simulator/internal/store"
	"site-monitor/simulator/internal/transport/ws"
)

type harness struct {
	handler http.Handler
	runner  *simulation.Runner
	auth    *auth.Authenticator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	catalog := config.DefaultCatalog()
	cfg := &config.Config{SessionTTLSeconds: 60, ValidAPIKeys: []string{"ops-key"}}

	mem := store.NewMemory(200, 100)
	runner, err := simulation.NewRunner(
		engine.New(engine.WithSeed(7)),
		mem, nil, catalog.SiteNames(), time.Second, zap.NewNop(),
	)
	require.NoError(t, err)

	a := auth.NewAuthenticator(cfg, catalog, nil)
	srv := NewServer(a, runner, mem, ws.NewHub(zap.NewNop()), catalog.Sites, zap.NewNop())
	return &harness{handler: srv.Handler(), runner: runner, auth: a}
}

func (h *harness) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, user, pass string) string {
	t.Helper()
	token, _, err := h.auth.Login(user, pass)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestLoginHandler(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/login", "", `{"username":"Site_Beta","password":"beta@123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp loginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Site_Beta", resp.User.Site)
	assert.Equal(t, "Site Beta", resp.DisplayName)

	rec = h.do(http.MethodPost, "/api/login", "", `{"username":"Site_Beta","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/api/login", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/sites", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var e errorResponse
	decode(t, rec, &e)
	assert.Equal(t, "missing credentials", e.Error)

	rec = h.do(http.MethodGet, "/api/sites", "bogus", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
	req.Header.Set("X-API-Key", "ops-key")
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/sites?token=ops-key", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	token := h.login(t, "GOV", "GOV@123")

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/api/logout", token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/sites", token, "").Code)
}

func TestSitesVisibility(t *testing.T) {
	h := newHarness(t)
	gov := h.login(t, "GOV", "GOV@123")
	beta := h.login(t, "Site_Beta", "beta@123")
	h.runner.Step()

	var all []map[string]any
	decode(t, h.do(http.MethodGet, "/api/sites", gov, ""), &all)
	assert.Len(t, all, 3)

	var own []map[string]any
	decode(t, h.do(http.MethodGet, "/api/sites", beta, ""), &own)
	require.Len(t, own, 1)
	assert.Equal(t, "Site_Beta", own[0]["name"])
	assert.Equal(t, "ITO Junction", own[0]["label"])
	assert.NotEmpty(t, own[0]["category"])

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/sites/Site_Beta", beta, "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/sites/Site_Alpha", beta, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/sites/Site_Omega", gov, "").Code)
}

func TestLogsAreGovOnly(t *testing.T) {
	h := newHarness(t)
	gov := h.login(t, "GOV", "GOV@123")
	beta := h.login(t, "Site_Beta", "beta@123")
	h.runner.Step()
	h.runner.Step()

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/logs", beta, "").Code)

	var logs []domain.LogEntry
	decode(t, h.do(http.MethodGet, "/api/logs", gov, ""), &logs)
	assert.Len(t, logs, 6)

	decode(t, h.do(http.MethodGet, "/api/logs?site=Site_Gamma&limit=1", gov, ""), &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "Site_Gamma", logs[0].Site)
	assert.Equal(t, 2, logs[0].Tick)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/logs?limit=x", gov, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/logs?site=nope", gov, "").Code)
}

func TestAlertsFiltering(t *testing.T) {
	h := newHarness(t)
	gov := h.login(t, "GOV", "GOV@123")
	beta := h.login(t, "Site_Beta", "beta@123")
	for i := 0; i < 30; i++ {
		h.runner.Step()
	}

	var govAlerts []domain.Alert
	decode(t, h.do(http.MethodGet, "/api/alerts", gov, ""), &govAlerts)
	for _, a := range govAlerts {
		assert.Empty(t, a.Corrective)
	}

	var betaAlerts []domain.Alert
	decode(t, h.do(http.MethodGet, "/api/alerts", beta, ""), &betaAlerts)
	for _, a := range betaAlerts {
		assert.Equal(t, "Site_Beta", a.Site)
	}

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/alerts?site=Site_Alpha", beta, "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/alerts?type=fire", gov, "").Code)

	var violations []domain.Alert
	decode(t, h.do(http.MethodGet, "/api/alerts?type=violation", gov, ""), &violations)
	for _, a := range violations {
		assert.Equal(t, domain.AlertViolation, a.Type)
	}

	var counts map[domain.AlertType]int
	decode(t, h.do(http.MethodGet, "/api/alerts/counts", gov, ""), &counts)
	assert.Len(t, counts, len(domain.AlertTypes))
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, len(govAlerts), total)
}

func TestSummaryAndESG(t *testing.T) {
	h := newHarness(t)
	gov := h.login(t, "GOV", "GOV@123")
	gamma := h.login(t, "Site_Gamma", "gamma@123")
	h.runner.Step()

	var sum report.Summary
	decode(t, h.do(http.MethodGet, "/api/summary", gov, ""), &sum)
	assert.Equal(t, 1, sum.Tick)
	assert.Equal(t, 3, sum.Sites)

	decode(t, h.do(http.MethodGet, "/api/summary", gamma, ""), &sum)
	assert.Equal(t, 1, sum.Sites)

	var ranks []report.Ranking
	decode(t, h.do(http.MethodGet, "/api/esg", gamma, ""), &ranks)
	require.Len(t, ranks, 3)
	assert.Equal(t, 1, ranks[0].Rank)

	var rep report.SiteReport
	decode(t, h.do(http.MethodGet, "/api/esg/Site_Gamma", gamma, ""), &rep)
	assert.Equal(t, "Site_Gamma", rep.Name)
	assert.Equal(t, 3, rep.SiteCount)
	assert.Equal(t, 1, rep.Samples)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/esg/Site_Alpha", gamma, "").Code)
}

func TestSimulationControls(t *testing.T) {
	h := newHarness(t)
	gov := h.login(t, "GOV", "GOV@123")
	alpha := h.login(t, "Site_Alpha", "alpha@123")

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/sim/start", alpha, "").Code)

	var st simStatus
	decode(t, h.do(http.MethodGet, "/api/sim", alpha, ""), &st)
	assert.False(t, st.Running)
	assert.Len(t, st.Speeds, len(simulation.Speeds))

	decode(t, h.do(http.MethodPost, "/api/sim/start", gov, ""), &st)
	assert.True(t, st.Running)
	decode(t, h.do(http.MethodPost, "/api/sim/pause", gov, ""), &st)
	assert.False(t, st.Running)

	var res domain.TickResult
	decode(t, h.do(http.MethodPost, "/api/sim/step", gov, ""), &res)
	assert.Equal(t, 1, res.Tick)
	assert.Len(t, res.Sites, 3)

	decode(t, h.do(http.MethodPut, "/api/sim/interval", gov, `{"interval_ms":2000}`), &st)
	assert.Equal(t, int64(2000), st.IntervalMS)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPut, "/api/sim/interval", gov, `{"interval_ms":5}`).Code)

	decode(t, h.do(http.MethodPost, "/api/sim/reset", gov, ""), &st)
	assert.Equal(t, 0, st.Tick)
	assert.False(t, st.Running)
}

func TestWriteSiteReport_SiteGoneAfterReset(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSiteReport(rec, "Site_Alpha", []*domain.SiteState{{Name: "Site_Beta"}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var e errorResponse
	decode(t, rec, &e)
	assert.Equal(t, "unknown site: Site_Alpha", e.Error)

	rec = httptest.NewRecorder()
	writeSiteReport(rec, "Site_Beta", []*domain.SiteState{{Name: "Site_Beta"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}
