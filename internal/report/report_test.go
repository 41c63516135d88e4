package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-monitor/simulator/internal/domain"
)

func sites() []*domain.SiteState {
	return []*domain.SiteState{
		{Name: "Site_Alpha", AQIHistory: []float64{200, 300}, Violations: 6, TotalFine: 800},
		{Name: "Site_Beta", AQIHistory: []float64{50, 50}, WaterSpray: true},
		{Name: "Site_Gamma"},
	}
}

func TestRankings_SortedByScore(t *testing.T) {
	r := Rankings(sites())

	require.Len(t, r, 3)
	assert.Equal(t, "Site_Gamma", r[0].Name)
	assert.Equal(t, 100.0, r[0].Score)
	assert.Equal(t, 0.0, r[0].AvgAQI)
	assert.Equal(t, "A", r[0].Grade)

	assert.Equal(t, "Site_Beta", r[1].Name)
	assert.InDelta(t, 90, r[1].Score, 1e-9)
	assert.Equal(t, "good", r[1].Band)

	assert.Equal(t, "Site_Alpha", r[2].Name)
	// 100 - 250/5 - 3
	assert.InDelta(t, 47, r[2].Score, 1e-9)
	assert.Equal(t, "fair", r[2].Band)
	assert.Equal(t, "C", r[2].Grade)
	assert.Equal(t, 3, r[2].Rank)
	assert.Equal(t, 800, r[2].TotalFine)
}

func TestRankings_TiesKeepOrder(t *testing.T) {
	r := Rankings([]*domain.SiteState{{Name: "b"}, {Name: "a"}})
	assert.Equal(t, "b", r[0].Name)
	assert.Equal(t, "a", r[1].Name)
}

func TestScoreBand(t *testing.T) {
	assert.Equal(t, "good", ScoreBand(70.1))
	assert.Equal(t, "fair", ScoreBand(70))
	assert.Equal(t, "fair", ScoreBand(40.1))
	assert.Equal(t, "poor", ScoreBand(40))
}

func TestForSite(t *testing.T) {
	rep, ok := ForSite("Site_Alpha", sites())
	require.True(t, ok)

	assert.Equal(t, 3, rep.Rank)
	assert.Equal(t, 3, rep.SiteCount)
	assert.Equal(t, 250.0, rep.AvgAQI)
	assert.Equal(t, "Poor", rep.Category)
	assert.Equal(t, "#f97316", rep.Color)
	assert.Equal(t, 2, rep.Samples)

	_, ok = ForSite("Site_Delta", sites())
	assert.False(t, ok)
}

func TestNetwork(t *testing.T) {
	s := Network(12, sites())

	assert.Equal(t, 12, s.Tick)
	assert.InDelta(t, 350.0/3, s.AvgAQI, 1e-9)
	assert.Equal(t, "Moderate", s.Category)
	assert.Equal(t, 800, s.TotalFines)
	assert.Equal(t, 1, s.ActiveSprays)

	empty := Network(0, nil)
	assert.Equal(t, 0.0, empty.AvgAQI)
	assert.Equal(t, "Good", empty.Category)
}

func TestAlertCounts(t *testing.T) {
	counts := AlertCounts([]domain.Alert{
		{Type: domain.AlertViolation},
		{Type: domain.AlertViolation},
		{Type: domain.AlertTamper},
	})

	assert.Equal(t, 2, counts[domain.AlertViolation])
	assert.Equal(t, 1, counts[domain.AlertTamper])
	assert.Equal(t, 0, counts[domain.AlertAnomaly])
	assert.Len(t, counts, len(domain.AlertTypes))
}
