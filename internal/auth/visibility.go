package auth

import "site-monitor/simulator/internal/domain"

// VisibleAlerts applies the role view: government users see every site
// without corrective actions, site users see only their own alerts with them.
func VisibleAlerts(p domain.Principal, alerts []domain.Alert) []domain.Alert {
	out := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		switch {
		case p.Role == domain.RoleGov:
			out = append(out, a.WithoutCorrective())
		case p.Site == a.Site:
			out = append(out, a)
		}
	}
	return out
}

func VisibleLogs(p domain.Principal, logs []domain.LogEntry) []domain.LogEntry {
	out := make([]domain.LogEntry, 0, len(logs))
	for _, l := range logs {
		if p.CanSee(l.Site) {
			out = append(out, l)
		}
	}
	return out
}

func VisibleSites(p domain.Principal, sites []*domain.SiteState) []*domain.SiteState {
	out := make([]*domain.SiteState, 0, len(sites))
	for _, s := range sites {
		if p.CanSee(s.Name) {
			out = append(out, s)
		}
	}
	return out
}

// CanReadLogFeed reports access to the raw log feed, which is government only.
func CanReadLogFeed(p domain.Principal) bool {
	return p.Role == domain.RoleGov
}

// VisibleTick narrows a tick result to what p may see.
func VisibleTick(p domain.Principal, res *domain.TickResult) *domain.TickResult {
	out := &domain.TickResult{
		Tick:   res.Tick,
		At:     res.At,
		Alerts: VisibleAlerts(p, res.Alerts),
		Logs:   VisibleLogs(p, res.Logs),
	}
	for _, s := range res.Sites {
		if p.CanSee(s.Name) {
			out.Sites = append(out.Sites, s)
		}
	}
	return out
}
