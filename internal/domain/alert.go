package domain

import "time"

type AlertType string

const (
	AlertViolation    AlertType = "violation"
	AlertTamper       AlertType = "tamper"
	AlertPredictive   AlertType = "predictive"
	AlertIntervention AlertType = "intervention"
	AlertAnomaly      AlertType = "anomaly"
)

var AlertTypes = []AlertType{
	AlertViolation,
	AlertTamper,
	AlertPredictive,
	AlertIntervention,
	AlertAnomaly,
}

func (t AlertType) Valid() bool {
	for _, v := range AlertTypes {
		if v == t {
			return true
		}
	}
	return false
}

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

type Alert struct {
	ID         string        `json:"id"`
	Time       time.Time     `json:"time"`
	Tick       int           `json:"tick"`
	Site       string        `json:"site"`
	Type       AlertType     `json:"type"`
	Severity   AlertSeverity `json:"severity"`
	Message    string        `json:"message"`
	Fine       int           `json:"fine"`
	Corrective []string      `json:"corrective,omitempty"`
}

// WithoutCorrective returns a copy stripped of corrective actions.
func (a Alert) WithoutCorrective() Alert {
	a.Corrective = nil
	return a
}

// CorrectiveRule pairs a reading condition with the action it recommends.
type CorrectiveRule struct {
	Action  string
	Applies func(r Readings, wind float64) bool
}

const AllClearAction = "✅ All pollutant levels within CPCB limits. Continue standard monitoring protocol."

var DefaultCorrectiveRules = []CorrectiveRule{
	{
		Action:  "🔧 Activate immediate dust suppression: Spray water/mist cannons on exposed surfaces. Pause all excavation and demolition activities.",
		Applies: func(r Readings, _ float64) bool { return r.PM10 > 150 },
	},
	{
		Action:  "🛑 Halt all exposed earth-moving activities due to high wind-driven dust spread. Deploy wind barriers.",
		Applies: func(r Readings, wind float64) bool { return r.PM10 > 100 && wind > 5 },
	},
	{
		Action:  "🧹 Ensure all haul roads are watered every 2 hours. Cover stockpiles with tarpaulin.",
		Applies: func(r Readings, _ float64) bool { return r.PM10 > 100 },
	},
	{
		Action:  "💨 Deploy fine-mist water sprays in affected zones. Switch to low-emission machinery. Cover fine material storage.",
		Applies: func(r Readings, _ float64) bool { return r.PM25 > 60 },
	},
	{
		Action:  "🔄 Increase air filtration near worker zones. Use wet-cutting methods for concrete/metal work.",
		Applies: func(r Readings, _ float64) bool { return r.PM25 > 35 },
	},
	{
		Action:  "🚛 Immediately pause non-essential diesel engines and generators. Use electric alternatives where available.",
		Applies: func(r Readings, _ float64) bool { return r.NO2 > 100 },
	},
	{
		Action:  "⛽ Ensure all diesel vehicles meet BS-VI emission norms. Limit idling time to under 3 minutes.",
		Applies: func(r Readings, _ float64) bool { return r.NO2 > 80 },
	},
	{
		Action:  "🚨 CRITICAL: Turn off all indoor generators immediately. Evacuate enclosed/semi-enclosed areas. Ensure ventilation.",
		Applies: func(r Readings, _ float64) bool { return r.CO > 9 },
	},
	{
		Action:  "🌬️ Increase ventilation in work areas. Monitor worker health for CO exposure symptoms (headache, dizziness).",
		Applies: func(r Readings, _ float64) bool { return r.CO > 2 },
	},
}

var (
	TamperWarningActions = []string{
		"🔒 Inspect sensor mounting and physical security immediately.",
		"📹 Review CCTV footage for unauthorized access near sensor area.",
		"🔧 Tighten sensor brackets and re-calibrate accelerometer baseline.",
	}
	TamperFineActions = []string{
		"🚨 MANDATORY: Site subject to immediate manual inspection by CPCB officials.",
		"🔒 Lock down sensor area. Post security personnel at all sensor locations.",
		"📹 Preserve all CCTV footage for the last 48 hours as evidence.",
		"📋 File incident report with regulatory authority within 24 hours.",
		"⚖️ Repeat offenses may result in site shutdown and criminal prosecution.",
	}
	AnomalyActions = []string{
		"🔍 Verify sensor readings with backup/portable equipment.",
		"📊 Cross-check with nearby monitoring stations for corroboration.",
		"🔧 Run sensor self-diagnostics and recalibrate if needed.",
	}
	SprayOnActions = []string{
		"💧 Water mist cannons deployed automatically.",
		"📡 Monitoring system will auto-deactivate when AQI drops below 150.",
		"👷 Notify site supervisor of automated intervention.",
	}
	SprayOffActions = []string{
		"✅ Air quality returning to acceptable levels.",
		"📋 Log intervention duration and water usage for compliance report.",
	}
)
