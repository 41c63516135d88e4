package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"site-monitor/simulator/internal/config"
	"site-monitor/simulator/internal/domain"
)

const (
	TelemetryChannel = "sites:telemetry"
	geoKey           = "sites:geo"
)

func SiteStateKey(site string) string {
	return fmt.Sprintf("site:%s:state", site)
}

func SiteAlertChannel(site string) string {
	return fmt.Sprintf("site:%s:alerts", site)
}

func APIKeyKey(apiKey string) string {
	return fmt.Sprintf("monitor:auth:%s", apiKey)
}

// RedisStore fans live site state and alerts out to Redis. It holds only
// expiring state; nothing here is history.
type RedisStore struct {
	client   *redis.Client
	stateTTL time.Duration
	coords   map[string]config.Site
}

func NewRedisStore(ctx context.Context, cfg *config.Config, sites []config.Site) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	coords := make(map[string]config.Site, len(sites))
	for _, s := range sites {
		coords[s.Name] = s
	}
	return &RedisStore{
		client:   client,
		stateTTL: time.Duration(cfg.StateTTLSeconds) * time.Second,
		coords:   coords,
	}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

func stateFields(site *domain.SiteSnapshot) map[string]interface{} {
	fields := map[string]interface{}{
		"site":          site.Name,
		"aqi":           site.AQI,
		"violations":    site.Violations,
		"tamper_events": site.TamperEvents,
		"total_fine":    site.TotalFine,
		"interventions": site.Interventions,
		"anomaly_count": site.AnomalyCount,
		"water_spray":   site.WaterSpray,
		"samples":       site.Samples,
	}
	if site.PredictedAQI != nil {
		fields["predicted_aqi"] = *site.PredictedAQI
	}
	if l := site.LatestLog; l != nil {
		fields["tick"] = l.Tick
		fields["pm25"] = l.PM25
		fields["pm10"] = l.PM10
		fields["no2"] = l.NO2
		fields["co"] = l.CO
		fields["risk"] = l.Risk
		fields["grade"] = l.Grade
		fields["wind"] = l.Wind
		fields["humidity"] = l.Humidity
		fields["timestamp"] = l.Time.Unix()
	}
	return fields
}

// PipelineStateUpdate writes the site's live hash, refreshes its geo entry
// and publishes the latest log on the telemetry channel in one round trip.
func (r *RedisStore) PipelineStateUpdate(ctx context.Context, site *domain.SiteSnapshot) error {
	if site.LatestLog == nil {
		return nil
	}
	pubPayload, err := json.Marshal(site.LatestLog)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	key := SiteStateKey(site.Name)
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, stateFields(site))
	pipe.Expire(ctx, key, r.stateTTL)
	if c, ok := r.coords[site.Name]; ok && (c.Lat != 0 || c.Lon != 0) {
		pipe.GeoAdd(ctx, geoKey, &redis.GeoLocation{
			Name:      site.Name,
			Longitude: c.Lon,
			Latitude:  c.Lat,
		})
	}
	pipe.Publish(ctx, TelemetryChannel, pubPayload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

func (r *RedisStore) GetAPIKey(ctx context.Context, apiKey string) (string, error) {
	val, err := r.client.Get(ctx, APIKeyKey(apiKey)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get api key failed: %w", err)
	}
	return val, nil
}

func (r *RedisStore) PublishAlert(ctx context.Context, alert domain.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return r.client.Publish(ctx, SiteAlertChannel(alert.Site), payload).Err()
}

// ClearSites drops live state after a simulation reset.
func (r *RedisStore) ClearSites(ctx context.Context, names []string) error {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, SiteStateKey(n))
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
