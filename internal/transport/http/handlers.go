// Package http exposes the dashboard API over net/http.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"site-monitor/simulator/internal/auth"
	"site-monitor/simulator/internal/config"
	"site-monitor/simulator/internal/domain"
	"site-monitor/simulator/internal/engine"
	"site-monitor/simulator/internal/metrics"
	"site-monitor/simulator/internal/report"
	"site-monitor/simulator/internal/simulation"
	"site-monitor/simulator/internal/store"
	"site-monitor/simulator/internal/transport/ws"
)

type Server struct {
	auth   *auth.Authenticator
	mw     *AuthMiddleware
	runner *simulation.Runner
	store  *store.Memory
	hub    *ws.Hub
	sites  map[string]config.Site
	logger *zap.Logger
}

func NewServer(
	a *auth.Authenticator,
	runner *simulation.Runner,
	mem *store.Memory,
	hub *ws.Hub,
	sites []config.Site,
	logger *zap.Logger,
) *Server {
	meta := make(map[string]config.Site, len(sites))
	for _, s := range sites {
		meta[s.Name] = s
	}
	return &Server{
		auth:   a,
		mw:     NewAuthMiddleware(a),
		runner: runner,
		store:  mem,
		hub:    hub,
		sites:  meta,
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.mw.Wrap(h))
	}
	authed("POST /api/logout", s.handleLogout)
	authed("GET /api/summary", s.handleSummary)
	authed("GET /api/sites", s.handleSites)
	authed("GET /api/sites/{name}", s.handleSite)
	authed("GET /api/logs", RequireGov(s.handleLogs))
	authed("GET /api/alerts", s.handleAlerts)
	authed("GET /api/alerts/counts", s.handleAlertCounts)
	authed("GET /api/esg", s.handleRankings)
	authed("GET /api/esg/{name}", s.handleSiteReport)
	authed("GET /api/sim", s.handleSimStatus)
	authed("POST /api/sim/start", RequireGov(s.handleSimStart))
	authed("POST /api/sim/pause", RequireGov(s.handleSimPause))
	authed("POST /api/sim/reset", RequireGov(s.handleSimReset))
	authed("POST /api/sim/step", RequireGov(s.handleSimStep))
	authed("PUT /api/sim/interval", RequireGov(s.handleSimInterval))
	authed("GET /ws", s.handleWS)

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string           `json:"token"`
	User        domain.Principal `json:"user"`
	DisplayName string           `json:"display_name"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, p, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.logger.Info("login rejected", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.logger.Info("login", zap.String("username", p.Username), zap.String("role", string(p.Role)))
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: p, DisplayName: p.DisplayName()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(tokenFrom(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"tick":    s.store.Tick(),
		"running": s.runner.Running(),
		"clients": s.hub.Clients(),
	})
}

func (s *Server) visibleSites(r *http.Request) (domain.Principal, []*domain.SiteState) {
	p, _ := PrincipalFrom(r.Context())
	return p, auth.VisibleSites(p, s.store.Sites())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	_, sites := s.visibleSites(r)
	writeJSON(w, http.StatusOK, report.Network(s.store.Tick(), sites))
}

// siteView decorates live state with catalog metadata and the AQI band.
type siteView struct {
	*domain.SiteState
	Label    string  `json:"label,omitempty"`
	District string  `json:"district,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
	AQI      float64 `json:"aqi"`
	Grade    string  `json:"grade"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
}

func (s *Server) view(site *domain.SiteState) siteView {
	meta := s.sites[site.Name]
	aqi := site.LatestAQI()
	return siteView{
		SiteState: site,
		Label:     meta.Label,
		District:  meta.District,
		Lat:       meta.Lat,
		Lon:       meta.Lon,
		AQI:       aqi,
		Grade:     engine.Grade(aqi),
		Category:  engine.Category(aqi),
		Color:     engine.Color(aqi),
	}
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	_, sites := s.visibleSites(r)
	out := make([]siteView, len(sites))
	for i, site := range sites {
		out[i] = s.view(site)
	}
	writeJSON(w, http.StatusOK, out)
}

// siteFor resolves the {name} path value and checks p may see it. It writes
// the error response itself.
func (s *Server) siteFor(w http.ResponseWriter, r *http.Request) (*domain.SiteState, bool) {
	p, _ := PrincipalFrom(r.Context())
	name := r.PathValue("name")
	site, err := s.store.Site(name)
	if errors.Is(err, store.ErrUnknownSite) {
		writeError(w, http.StatusNotFound, "unknown site: "+name)
		return nil, false
	}
	if !p.CanSee(name) {
		writeError(w, http.StatusForbidden, "site not visible to this user")
		return nil, false
	}
	return site, true
}

func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	site, ok := s.siteFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.view(site))
}

// feedFilter parses site and limit, and type when withType is set.
func (s *Server) feedFilter(w http.ResponseWriter, r *http.Request, withType bool) (store.Filter, bool) {
	p, _ := PrincipalFrom(r.Context())
	q := r.URL.Query()
	f := store.Filter{Site: q.Get("site")}

	if f.Site != "" {
		if !s.store.HasSite(f.Site) {
			writeError(w, http.StatusNotFound, "unknown site: "+f.Site)
			return f, false
		}
		if !p.CanSee(f.Site) {
			writeError(w, http.StatusForbidden, "site not visible to this user")
			return f, false
		}
	}
	if withType {
		if t := domain.AlertType(q.Get("type")); t != "" {
			if !t.Valid() {
				writeError(w, http.StatusBadRequest, "unknown alert type: "+string(t))
				return f, false
			}
			f.Type = t
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return f, false
		}
		f.Limit = n
	}
	return f, true
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	f, ok := s.feedFilter(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.store.Logs(f))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	f, ok := s.feedFilter(w, r, true)
	if !ok {
		return
	}
	p, _ := PrincipalFrom(r.Context())
	writeJSON(w, http.StatusOK, auth.VisibleAlerts(p, s.store.Alerts(f)))
}

func (s *Server) handleAlertCounts(w http.ResponseWriter, r *http.Request) {
	f, ok := s.feedFilter(w, r, false)
	if !ok {
		return
	}
	p, _ := PrincipalFrom(r.Context())
	writeJSON(w, http.StatusOK, report.AlertCounts(auth.VisibleAlerts(p, s.store.Alerts(f))))
}

// Rankings are a public league table; every logged-in user sees all sites.
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, report.Rankings(s.store.Sites()))
}

func (s *Server) handleSiteReport(w http.ResponseWriter, r *http.Request) {
	site, ok := s.siteFor(w, r)
	if !ok {
		return
	}
	writeSiteReport(w, site.Name, s.store.Sites())
}

// writeSiteReport ranks name within sites. A reset between reading the site
// and reading the network can drop it, which is a 404.
func writeSiteReport(w http.ResponseWriter, name string, sites []*domain.SiteState) {
	rep, ok := report.ForSite(name, sites)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown site: "+name)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type simStatus struct {
	simulation.Status
	Speeds []simulation.Speed `json:"speeds"`
}

func (s *Server) status() simStatus {
	return simStatus{Status: s.runner.Status(), Speeds: simulation.Speeds}
}

func (s *Server) handleSimStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleSimStart(w http.ResponseWriter, r *http.Request) {
	s.runner.Start()
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleSimPause(w http.ResponseWriter, r *http.Request) {
	s.runner.Pause()
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleSimReset(w http.ResponseWriter, r *http.Request) {
	s.runner.Reset(r.Context())
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleSimStep(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	writeJSON(w, http.StatusOK, auth.VisibleTick(p, s.runner.Step()))
}

type intervalRequest struct {
	IntervalMS int64 `json:"interval_ms"`
}

func (s *Server) handleSimInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.runner.SetInterval(time.Duration(req.IntervalMS) * time.Millisecond); err != nil {
		if errors.Is(err, simulation.ErrInvalidInterval) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to set interval", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	s.hub.Serve(w, r, p)
}
