package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simulator_ticks_total",
		Help: "Simulation ticks executed",
	})
	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_alerts_total",
		Help: "Alerts emitted by type and site",
	}, []string{"site", "type"})
	FinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_fines_rupees_total",
		Help: "Fines assessed in rupees",
	}, []string{"site", "type"})
	SiteAQI = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulator_site_aqi",
		Help: "Latest AQI per site",
	}, []string{"site"})
	WaterSprayActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulator_water_spray_active",
		Help: "1 while the site's water spray is running",
	}, []string{"site"})
	ChannelDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulator_channel_drops_total",
		Help: "Tick results dropped because a pipeline channel was full",
	}, []string{"channel"})
	RedisWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simulator_redis_write_failures_total",
		Help: "Failed Redis state writes and publishes",
	})
	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "simulator_live_clients",
		Help: "Connected websocket clients",
	})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ObserveSite records the latest per-site gauges.
func ObserveSite(site string, aqi float64, spray bool) {
	SiteAQI.WithLabelValues(site).Set(aqi)
	WaterSprayActive.WithLabelValues(site).Set(boolGauge(spray))
}

// ResetSites clears per-site gauges after a simulation reset.
func ResetSites() {
	SiteAQI.Reset()
	WaterSprayActive.Reset()
}
