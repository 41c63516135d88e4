package engine

import "site-monitor/simulator/internal/domain"

// band is one CPCB breakpoint row: concentration low/high, index low/high.
type band struct {
	cl, ch, il, ih float64
}

var breakpoints = map[domain.Pollutant][]band{
	domain.PM25: {{0, 30, 0, 50}, {30, 60, 51, 100}, {60, 90, 101, 200}, {90, 120, 201, 300}, {120, 250, 301, 400}, {250, 10000, 401, 500}},
	domain.PM10: {{0, 50, 0, 50}, {50, 100, 51, 100}, {100, 250, 101, 200}, {250, 350, 201, 300}, {350, 430, 301, 400}, {430, 10000, 401, 500}},
	domain.NO2:  {{0, 40, 0, 50}, {40, 80, 51, 100}, {80, 180, 101, 200}, {180, 280, 201, 300}, {280, 400, 301, 400}, {400, 10000, 401, 500}},
	domain.CO:   {{0, 1, 0, 50}, {1, 2, 51, 100}, {2, 10, 101, 200}, {10, 17, 201, 300}, {17, 34, 301, 400}, {34, 10000, 401, 500}},
}

const maxIndex = 500

// Subindex interpolates value inside the first band that contains it.
// Values outside every band (including unknown pollutants) score 500.
func Subindex(value float64, p domain.Pollutant) float64 {
	for _, b := range breakpoints[p] {
		if value >= b.cl && value <= b.ch {
			return ((b.ih-b.il)/(b.ch-b.cl))*(value-b.cl) + b.il
		}
	}
	return maxIndex
}

func CalculateAQI(pm25, pm10, no2, co float64) float64 {
	return max(
		Subindex(pm25, domain.PM25),
		Subindex(pm10, domain.PM10),
		Subindex(no2, domain.NO2),
		Subindex(co, domain.CO),
	)
}

func AQIOf(r domain.Readings) float64 {
	return CalculateAQI(r.PM25, r.PM10, r.NO2, r.CO)
}

func Grade(aqi float64) string {
	switch {
	case aqi <= 100:
		return "A"
	case aqi <= 200:
		return "B"
	case aqi <= 300:
		return "C"
	default:
		return "D"
	}
}

func Category(aqi float64) string {
	switch {
	case aqi <= 50:
		return "Good"
	case aqi <= 100:
		return "Satisfactory"
	case aqi <= 200:
		return "Moderate"
	case aqi <= 300:
		return "Poor"
	case aqi <= 400:
		return "Very Poor"
	default:
		return "Severe"
	}
}

func Color(aqi float64) string {
	switch {
	case aqi <= 50:
		return "#22c55e"
	case aqi <= 100:
		return "#84cc16"
	case aqi <= 200:
		return "#eab308"
	case aqi <= 300:
		return "#f97316"
	case aqi <= 400:
		return "#ef4444"
	default:
		return "#7f1d1d"
	}
}
