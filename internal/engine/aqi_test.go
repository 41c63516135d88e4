package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"site-monitor/simulator/internal/domain"
)

func TestSubindex_BandEdges(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		p     domain.Pollutant
		want  float64
	}{
		{"pm25 zero", 0, domain.PM25, 0},
		{"pm25 first band top", 30, domain.PM25, 50},
		{"pm25 mid second band", 45, domain.PM25, 75.5},
		{"pm25 legal limit", 60, domain.PM25, 100},
		{"pm25 above 10000", 10001, domain.PM25, 500},
		{"pm10 limit", 100, domain.PM10, 100},
		{"pm10 very poor floor", 350, domain.PM10, 300},
		{"no2 limit", 80, domain.NO2, 100},
		{"no2 top of poor", 280, domain.NO2, 300},
		{"co limit", 2, domain.CO, 100},
		{"co mid moderate", 6, domain.CO, 150.5},
		{"negative value", -1, domain.CO, 500},
		{"unknown pollutant", 10, domain.Pollutant("SO2"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Subindex(tt.value, tt.p), 1e-9)
		})
	}
}

func TestCalculateAQI_TakesWorstPollutant(t *testing.T) {
	aqi := CalculateAQI(34, 66, 32.5, 1.15)
	assert.InDelta(t, 66.68, aqi, 1e-9)

	assert.InDelta(t, 500, CalculateAQI(0, 0, 0, 20000), 1e-9)
}

func TestGradeCategoryColor_Thresholds(t *testing.T) {
	tests := []struct {
		aqi      float64
		grade    string
		category string
		color    string
	}{
		{0, "A", "Good", "#22c55e"},
		{50, "A", "Good", "#22c55e"},
		{50.01, "A", "Satisfactory", "#84cc16"},
		{100, "A", "Satisfactory", "#84cc16"},
		{100.5, "B", "Moderate", "#eab308"},
		{200, "B", "Moderate", "#eab308"},
		{201, "C", "Poor", "#f97316"},
		{300, "C", "Poor", "#f97316"},
		{300.1, "D", "Very Poor", "#ef4444"},
		{400, "D", "Very Poor", "#ef4444"},
		{401, "D", "Severe", "#7f1d1d"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.grade, Grade(tt.aqi), "grade at %v", tt.aqi)
		assert.Equal(t, tt.category, Category(tt.aqi), "category at %v", tt.aqi)
		assert.Equal(t, tt.color, Color(tt.aqi), "color at %v", tt.aqi)
	}
}

func TestPolicy_ExceedsIsStrict(t *testing.T) {
	p := DefaultPolicy()

	assert.False(t, p.Exceeds(domain.Readings{PM25: 60, PM10: 100, NO2: 80, CO: 2}))
	assert.True(t, p.Exceeds(domain.Readings{PM25: 60.01}))
	assert.True(t, p.Exceeds(domain.Readings{CO: 2.01}))
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.SprayOffBelow = 300
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.LegalLimits = map[domain.Pollutant]float64{domain.PM25: 60}
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.BaseArea = 0
	assert.Error(t, p.Validate())
}
