package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"site-monitor/simulator/internal/domain"
)

// Source is the uniform [0,1) generator driving the simulation.
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

const (
	minArea = 800
	maxArea = 5000

	dumpChance   = 0.05
	tamperChance = 0.03
)

type Engine struct {
	policy Policy
	rng    Source
	now    func() time.Time
	newID  func() string
}

type Option func(*Engine)

func WithSource(src Source) Option {
	return func(e *Engine) { e.rng = src }
}

func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		policy: DefaultPolicy(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return e
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) uniform(min, max float64) float64 {
	return e.rng.Float64()*(max-min) + min
}

// NewSite returns a fresh aggregate with a random footprint.
func (e *Engine) NewSite(name string) *domain.SiteState {
	return &domain.SiteState{
		Name:        name,
		Area:        e.uniform(minArea, maxArea),
		AQIHistory:  []float64{},
		PM25History: []float64{},
		PM10History: []float64{},
		NO2History:  []float64{},
		COHistory:   []float64{},
	}
}

// Result is the output of one Update call.
type Result struct {
	Log    domain.LogEntry
	Alerts []domain.Alert
}

// Update advances site by one tick in place and returns the log entry and
// alerts it produced.
func (e *Engine) Update(site *domain.SiteState, tick int) Result {
	p := e.policy
	at := e.now()
	var alerts []domain.Alert
	emit := func(typ domain.AlertType, sev domain.AlertSeverity, fine int, msg string, corrective []string) {
		alerts = append(alerts, domain.Alert{
			ID:         e.newID(),
			Time:       at,
			Tick:       tick,
			Site:       site.Name,
			Type:       typ,
			Severity:   sev,
			Message:    msg,
			Fine:       fine,
			Corrective: append([]string(nil), corrective...),
		})
	}

	r, wind, humidity, acc := e.synthesize(site, tick)
	aqi := AQIOf(r)

	if p.Exceeds(r) {
		site.Violations++
		corrective := CorrectiveActions(r, wind)
		if site.Violations <= p.ViolationWarningThreshold {
			emit(domain.AlertViolation, domain.SeverityWarning, 0,
				fmt.Sprintf("⚠ WARNING #%d: Legal limit exceeded — No fine (warning stage)", site.Violations),
				corrective)
		} else {
			site.TotalFine += p.ViolationFine
			emit(domain.AlertViolation, domain.SeverityCritical, p.ViolationFine,
				fmt.Sprintf("🚨 Violation #%d: Legal limit exceeded — Fine: ₹%d assessed (Total: ₹%d)",
					site.Violations, p.ViolationFine, site.TotalFine),
				corrective)
		}
	}

	tamper := math.Abs(acc-site.PrevAcc) > p.JerkThreshold
	if tamper {
		site.TamperEvents++
		if site.TamperEvents <= p.TamperWarningThreshold {
			emit(domain.AlertTamper, domain.SeverityWarning, 0,
				fmt.Sprintf("⚠ Jerk Detection #%d: Sensor movement detected — Warning issued (no fine)", site.TamperEvents),
				domain.TamperWarningActions)
		} else {
			site.TotalFine += p.TamperFine
			emit(domain.AlertTamper, domain.SeverityCritical, p.TamperFine,
				fmt.Sprintf("🚨 SECURITY ALERT: Tampering #%d detected! Fine: ₹%d assessed (Total: ₹%d)",
					site.TamperEvents, p.TamperFine, site.TotalFine),
				domain.TamperFineActions)
		}
	}
	site.PrevAcc = acc

	anomaly := false
	if mean, std, ok := window(site.AQIHistory, p.AnomalyWindow); ok {
		if std == 0 {
			std = 1
		}
		if math.Abs(aqi-mean) > p.AnomalySigma*std {
			anomaly = true
			site.AnomalyCount++
			emit(domain.AlertAnomaly, domain.SeverityWarning, 0,
				fmt.Sprintf("Anomaly detected — AQI %.0f deviates significantly from recent trend (mean: %.0f)", aqi, mean),
				domain.AnomalyActions)
		}
	}

	risk := aqi / maxIndex
	if tamper {
		risk += 0.3
	}
	if anomaly {
		risk += 0.2
	}
	risk = min(1.0, risk)

	if aqi > p.SprayOnAbove && !site.WaterSpray {
		site.WaterSpray = true
		site.Interventions++
		emit(domain.AlertIntervention, domain.SeverityInfo, 0,
			fmt.Sprintf("Water spray system ACTIVATED — AQI exceeded %.0f", p.SprayOnAbove),
			domain.SprayOnActions)
	}
	if site.WaterSpray && aqi < p.SprayOffBelow {
		site.WaterSpray = false
		emit(domain.AlertIntervention, domain.SeverityInfo, 0,
			fmt.Sprintf("Water spray system DEACTIVATED — AQI dropped below %.0f", p.SprayOffBelow),
			domain.SprayOffActions)
	}

	if predicted, ok := Predict(site.AQIHistory, aqi, p.PredictionWindow); ok {
		stored := max(0, round(predicted, 2))
		site.PredictedAQI = &stored
		if predicted > p.PredictAlertAbove {
			emit(domain.AlertPredictive, domain.SeverityWarning, 0,
				fmt.Sprintf("Predicted AQI: %.0f — Preemptive action recommended", predicted),
				CorrectiveActions(r, wind))
		}
	} else {
		site.PredictedAQI = nil
	}

	site.AQIHistory = append(site.AQIHistory, aqi)
	site.PM25History = append(site.PM25History, r.PM25)
	site.PM10History = append(site.PM10History, r.PM10)
	site.NO2History = append(site.NO2History, r.NO2)
	site.COHistory = append(site.COHistory, r.CO)

	log := domain.LogEntry{
		Time:       at,
		Tick:       tick,
		Site:       site.Name,
		PM25:       round(r.PM25, 2),
		PM10:       round(r.PM10, 2),
		NO2:        round(r.NO2, 2),
		CO:         round(r.CO, 2),
		AQI:        round(aqi, 2),
		Risk:       round(risk, 2),
		Anomaly:    anomaly,
		Tamper:     tamper,
		TotalFines: site.TotalFine,
		Grade:      Grade(aqi),
		WaterSpray: site.WaterSpray,
		Wind:       round(wind, 1),
		Humidity:   math.Round(humidity),
	}
	latest := log
	site.LatestLog = &latest

	return Result{Log: log, Alerts: alerts}
}

// synthesize draws this tick's raw readings, normalized by the site's area.
// The draw order is fixed so a seeded source replays identically.
func (e *Engine) synthesize(site *domain.SiteState, tick int) (domain.Readings, float64, float64, float64) {
	t := float64(tick)
	hour := tick % 24
	wind := e.uniform(0.5, 7)
	humidity := e.uniform(30, 60)

	pm25 := 40 + 30*math.Sin(t/10) + e.uniform(-10, 15)
	pm10 := 80 + 40*math.Sin(t/12) + e.uniform(-15, 20)
	no2 := 30 + 20*math.Sin(t/8) + e.uniform(-5, 10)
	co := 1.0 + 0.8*math.Sin(t/15) + e.uniform(-0.2, 0.5)

	if isRushHour(hour) {
		pm25 += e.uniform(20, 40)
		pm10 += e.uniform(30, 60)
		no2 += e.uniform(15, 30)
		co += e.uniform(0.5, 1.5)
	}

	if e.rng.Float64() < dumpChance {
		pm25 += e.uniform(80, 150)
		pm10 += e.uniform(100, 200)
	}

	clearing := max(0.4, 3/wind)
	pm25 *= clearing
	pm10 *= clearing

	if site.WaterSpray {
		pm25 *= 0.5
		pm10 *= 0.6
	}

	acc := e.uniform(-2, 2)
	if e.rng.Float64() < tamperChance {
		acc += e.uniform(15, 25)
	}

	scale := site.Area / e.policy.BaseArea
	r := domain.Readings{
		PM25: max(0, pm25) / scale,
		PM10: max(0, pm10) / scale,
		NO2:  max(0, no2) / scale,
		CO:   max(0, co) / scale,
	}
	return r, wind, humidity, acc / scale
}

func isRushHour(hour int) bool {
	return (hour >= 8 && hour <= 11) || (hour >= 17 && hour <= 20)
}

// window returns the mean and population standard deviation of the last n
// values, only once history holds more than n entries.
func window(history []float64, n int) (mean, std float64, ok bool) {
	if len(history) <= n {
		return 0, 0, false
	}
	recent := history[len(history)-n:]
	for _, v := range recent {
		mean += v
	}
	mean /= float64(n)
	var sq float64
	for _, v := range recent {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(n)), true
}

// Predict extrapolates the average per-tick change across the last n
// history entries n ticks ahead of the current AQI.
func Predict(history []float64, current float64, n int) (float64, bool) {
	if len(history) <= n {
		return 0, false
	}
	last := history[len(history)-n:]
	trend := (last[n-1] - last[0]) / float64(n)
	return current + trend*float64(n), true
}

// CorrectiveActions lists every matching rule in order, or the all-clear
// action when nothing matches.
func CorrectiveActions(r domain.Readings, wind float64) []string {
	var actions []string
	for _, rule := range domain.DefaultCorrectiveRules {
		if rule.Applies(r, wind) {
			actions = append(actions, rule.Action)
		}
	}
	if len(actions) == 0 {
		actions = append(actions, domain.AllClearAction)
	}
	return actions
}

// SustainabilityScore is 100 for a site with no history, otherwise penalized
// by average AQI, violations and tamper events, floored at 0.
func SustainabilityScore(site *domain.SiteState) float64 {
	if len(site.AQIHistory) == 0 {
		return 100
	}
	score := 100 - site.AverageAQI()/5 - float64(site.Violations)*0.5 - float64(site.TamperEvents)*5
	return max(0, score)
}

func round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}
