// Package report derives compliance and ESG views from site aggregates.
package report

import (
	"sort"

	"site-monitor/simulator/internal/domain"
	"site-monitor/simulator/internal/engine"
)

type Ranking struct {
	Rank         int     `json:"rank"`
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	Band         string  `json:"band"`
	AvgAQI       float64 `json:"avg_aqi"`
	Violations   int     `json:"violations"`
	TamperEvents int     `json:"tamper_events"`
	TotalFine    int     `json:"total_fine"`
	Grade        string  `json:"grade"`
}

// Rankings orders sites by sustainability score, best first. Ties keep
// the input order.
func Rankings(sites []*domain.SiteState) []Ranking {
	out := make([]Ranking, 0, len(sites))
	for _, s := range sites {
		score := engine.SustainabilityScore(s)
		avg := s.AverageAQI()
		out = append(out, Ranking{
			Name:         s.Name,
			Score:        score,
			Band:         ScoreBand(score),
			AvgAQI:       avg,
			Violations:   s.Violations,
			TamperEvents: s.TamperEvents,
			TotalFine:    s.TotalFine,
			Grade:        engine.Grade(avg),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func ScoreBand(score float64) string {
	switch {
	case score > 70:
		return "good"
	case score > 40:
		return "fair"
	default:
		return "poor"
	}
}

type SiteReport struct {
	Name          string           `json:"name"`
	Rank          int              `json:"rank"`
	SiteCount     int              `json:"site_count"`
	Score         float64          `json:"score"`
	Band          string           `json:"band"`
	AvgAQI        float64          `json:"avg_aqi"`
	Grade         string           `json:"grade"`
	Category      string           `json:"category"`
	Color         string           `json:"color"`
	Violations    int              `json:"violations"`
	TamperEvents  int              `json:"tamper_events"`
	TotalFine     int              `json:"total_fine"`
	Interventions int              `json:"interventions"`
	AnomalyCount  int              `json:"anomaly_count"`
	Samples       int              `json:"samples"`
	PredictedAQI  *float64         `json:"predicted_aqi"`
	Latest        *domain.LogEntry `json:"latest,omitempty"`
	AQIHistory    []float64        `json:"aqi_history"`
}

// ForSite builds the ESG report for one site. The rank is computed across
// all of sites, so pass the whole network even when reporting on one.
func ForSite(name string, sites []*domain.SiteState) (SiteReport, bool) {
	var site *domain.SiteState
	for _, s := range sites {
		if s.Name == name {
			site = s
			break
		}
	}
	if site == nil {
		return SiteReport{}, false
	}

	rank := 0
	for _, r := range Rankings(sites) {
		if r.Name == name {
			rank = r.Rank
			break
		}
	}

	avg := site.AverageAQI()
	score := engine.SustainabilityScore(site)
	return SiteReport{
		Name:          site.Name,
		Rank:          rank,
		SiteCount:     len(sites),
		Score:         score,
		Band:          ScoreBand(score),
		AvgAQI:        avg,
		Grade:         engine.Grade(avg),
		Category:      engine.Category(avg),
		Color:         engine.Color(avg),
		Violations:    site.Violations,
		TamperEvents:  site.TamperEvents,
		TotalFine:     site.TotalFine,
		Interventions: site.Interventions,
		AnomalyCount:  site.AnomalyCount,
		Samples:       len(site.AQIHistory),
		PredictedAQI:  site.PredictedAQI,
		Latest:        site.LatestLog,
		AQIHistory:    site.AQIHistory,
	}, true
}

type Summary struct {
	Tick         int     `json:"tick"`
	Sites        int     `json:"sites"`
	AvgAQI       float64 `json:"avg_aqi"`
	Category     string  `json:"category"`
	Color        string  `json:"color"`
	TotalFines   int     `json:"total_fines"`
	ActiveSprays int     `json:"active_sprays"`
}

// Network averages each site's latest AQI; a site with no ticks counts as 0.
func Network(tick int, sites []*domain.SiteState) Summary {
	s := Summary{Tick: tick, Sites: len(sites)}
	if len(sites) == 0 {
		s.Category = engine.Category(0)
		s.Color = engine.Color(0)
		return s
	}
	var sum float64
	for _, site := range sites {
		sum += site.LatestAQI()
		s.TotalFines += site.TotalFine
		if site.WaterSpray {
			s.ActiveSprays++
		}
	}
	s.AvgAQI = sum / float64(len(sites))
	s.Category = engine.Category(s.AvgAQI)
	s.Color = engine.Color(s.AvgAQI)
	return s
}

// AlertCounts tallies alerts per type. Every type is present, zero or not.
func AlertCounts(alerts []domain.Alert) map[domain.AlertType]int {
	counts := make(map[domain.AlertType]int, len(domain.AlertTypes))
	for _, t := range domain.AlertTypes {
		counts[t] = 0
	}
	for _, a := range alerts {
		counts[a.Type]++
	}
	return counts
}
