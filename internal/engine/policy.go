package engine

import (
	"fmt"

	"site-monitor/simulator/internal/domain"
)

// Policy holds the regulatory and heuristic thresholds the engine applies.
// The zero value is not usable; start from DefaultPolicy.
type Policy struct {
	LegalLimits map[domain.Pollutant]float64 `yaml:"legal_limits"`
	BaseArea    float64                      `yaml:"base_area"`

	// The first N events of each kind are warnings; later ones are fined.
	ViolationFine             int `yaml:"violation_fine"`
	ViolationWarningThreshold int `yaml:"violation_warning_threshold"`
	TamperFine                int `yaml:"tamper_fine"`
	TamperWarningThreshold    int `yaml:"tamper_warning_threshold"`

	JerkThreshold float64 `yaml:"jerk_threshold"`

	AnomalyWindow int     `yaml:"anomaly_window"`
	AnomalySigma  float64 `yaml:"anomaly_sigma"`

	SprayOnAbove  float64 `yaml:"spray_on_above"`
	SprayOffBelow float64 `yaml:"spray_off_below"`

	PredictionWindow  int     `yaml:"prediction_window"`
	PredictAlertAbove float64 `yaml:"predict_alert_above"`
}

func DefaultPolicy() Policy {
	return Policy{
		LegalLimits: map[domain.Pollutant]float64{
			domain.PM25: 60,
			domain.PM10: 100,
			domain.NO2:  80,
			domain.CO:   2,
		},
		BaseArea:                  1000,
		ViolationFine:             200,
		ViolationWarningThreshold: 2,
		TamperFine:                500,
		TamperWarningThreshold:    2,
		JerkThreshold:             10,
		AnomalyWindow:             10,
		AnomalySigma:              2.5,
		SprayOnAbove:              250,
		SprayOffBelow:             150,
		PredictionWindow:          5,
		PredictAlertAbove:         250,
	}
}

func (p Policy) Validate() error {
	for _, pol := range domain.Pollutants {
		if p.LegalLimits[pol] <= 0 {
			return fmt.Errorf("legal limit for %s must be positive", pol)
		}
	}
	if p.BaseArea <= 0 {
		return fmt.Errorf("base area must be positive, got %v", p.BaseArea)
	}
	if p.ViolationWarningThreshold < 0 || p.TamperWarningThreshold < 0 {
		return fmt.Errorf("warning thresholds must not be negative")
	}
	if p.AnomalyWindow < 2 {
		return fmt.Errorf("anomaly window must be at least 2, got %d", p.AnomalyWindow)
	}
	if p.PredictionWindow < 2 {
		return fmt.Errorf("prediction window must be at least 2, got %d", p.PredictionWindow)
	}
	if p.SprayOffBelow > p.SprayOnAbove {
		return fmt.Errorf("spray off threshold %v is above on threshold %v", p.SprayOffBelow, p.SprayOnAbove)
	}
	return nil
}

// Exceeds reports whether any pollutant is above its legal limit.
func (p Policy) Exceeds(r domain.Readings) bool {
	for _, pol := range domain.Pollutants {
		if r.Value(pol) > p.LegalLimits[pol] {
			return true
		}
	}
	return false
}
