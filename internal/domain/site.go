package domain

import "time"

type Pollutant string

const (
	PM25 Pollutant = "PM25"
	PM10 Pollutant = "PM10"
	NO2  Pollutant = "NO2"
	CO   Pollutant = "CO"
)

var Pollutants = []Pollutant{PM25, PM10, NO2, CO}

type Readings struct {
	PM25 float64 `json:"pm25"`
	PM10 float64 `json:"pm10"`
	NO2  float64 `json:"no2"`
	CO   float64 `json:"co"`
}

func (r Readings) Value(p Pollutant) float64 {
	switch p {
	case PM25:
		return r.PM25
	case PM10:
		return r.PM10
	case NO2:
		return r.NO2
	case CO:
		return r.CO
	default:
		return 0
	}
}

// SiteState is the per-site aggregate advanced by the engine once per tick.
type SiteState struct {
	Name string  `json:"name"`
	Area float64 `json:"area"`

	AQIHistory  []float64 `json:"aqi_history"`
	PM25History []float64 `json:"pm25_history"`
	PM10History []float64 `json:"pm10_history"`
	NO2History  []float64 `json:"no2_history"`
	COHistory   []float64 `json:"co_history"`

	Violations    int `json:"violations"`
	TamperEvents  int `json:"tamper_events"`
	TotalFine     int `json:"total_fine"`
	Interventions int `json:"interventions"`
	AnomalyCount  int `json:"anomaly_count"`

	PrevAcc    float64 `json:"-"`
	WaterSpray bool    `json:"water_spray"`

	LatestLog    *LogEntry `json:"latest_log"`
	PredictedAQI *float64  `json:"predicted_aqi"`
}

// LatestAQI returns the most recent AQI, or 0 before the first tick.
func (s *SiteState) LatestAQI() float64 {
	if len(s.AQIHistory) == 0 {
		return 0
	}
	return s.AQIHistory[len(s.AQIHistory)-1]
}

func (s *SiteState) AverageAQI() float64 {
	if len(s.AQIHistory) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.AQIHistory {
		sum += v
	}
	return sum / float64(len(s.AQIHistory))
}

// Clone returns a deep copy that shares no slices or pointers with s.
func (s *SiteState) Clone() *SiteState {
	c := *s
	c.AQIHistory = append([]float64(nil), s.AQIHistory...)
	c.PM25History = append([]float64(nil), s.PM25History...)
	c.PM10History = append([]float64(nil), s.PM10History...)
	c.NO2History = append([]float64(nil), s.NO2History...)
	c.COHistory = append([]float64(nil), s.COHistory...)
	if s.LatestLog != nil {
		l := *s.LatestLog
		c.LatestLog = &l
	}
	if s.PredictedAQI != nil {
		p := *s.PredictedAQI
		c.PredictedAQI = &p
	}
	return &c
}

// SiteSnapshot is the history-free view of a site carried by tick results.
// Its size does not grow with the number of ticks.
type SiteSnapshot struct {
	Name          string    `json:"name"`
	Area          float64   `json:"area"`
	AQI           float64   `json:"aqi"`
	Samples       int       `json:"samples"`
	Violations    int       `json:"violations"`
	TamperEvents  int       `json:"tamper_events"`
	TotalFine     int       `json:"total_fine"`
	Interventions int       `json:"interventions"`
	AnomalyCount  int       `json:"anomaly_count"`
	WaterSpray    bool      `json:"water_spray"`
	PredictedAQI  *float64  `json:"predicted_aqi"`
	LatestLog     *LogEntry `json:"latest_log"`
}

func (s *SiteState) Snapshot() SiteSnapshot {
	snap := SiteSnapshot{
		Name:          s.Name,
		Area:          s.Area,
		AQI:           s.LatestAQI(),
		Samples:       len(s.AQIHistory),
		Violations:    s.Violations,
		TamperEvents:  s.TamperEvents,
		TotalFine:     s.TotalFine,
		Interventions: s.Interventions,
		AnomalyCount:  s.AnomalyCount,
		WaterSpray:    s.WaterSpray,
	}
	if s.LatestLog != nil {
		l := *s.LatestLog
		snap.LatestLog = &l
	}
	if s.PredictedAQI != nil {
		p := *s.PredictedAQI
		snap.PredictedAQI = &p
	}
	return snap
}

type LogEntry struct {
	Time       time.Time `json:"time"`
	Tick       int       `json:"tick"`
	Site       string    `json:"site"`
	PM25       float64   `json:"pm25"`
	PM10       float64   `json:"pm10"`
	NO2        float64   `json:"no2"`
	CO         float64   `json:"co"`
	AQI        float64   `json:"aqi"`
	Risk       float64   `json:"risk"`
	Anomaly    bool      `json:"anomaly"`
	Tamper     bool      `json:"tamper"`
	TotalFines int       `json:"total_fines"`
	Grade      string    `json:"grade"`
	WaterSpray bool      `json:"water_spray"`
	Wind       float64   `json:"wind"`
	Humidity   float64   `json:"humidity"`
}

// TickResult is what one runner step produced across all sites.
type TickResult struct {
	Tick   int            `json:"tick"`
	At     time.Time      `json:"at"`
	Sites  []SiteSnapshot `json:"sites"`
	Logs   []LogEntry     `json:"logs"`
	Alerts []Alert        `json:"alerts"`
}
