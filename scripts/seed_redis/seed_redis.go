package main

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"site-monitor/simulator/internal/auth"
	"site-monitor/simulator/internal/config"
	"site-monitor/simulator/internal/store"
)

// Dashboard API keys. Values are grants: "gov" or "site:<name>".
var apiKeys = map[string]string{
	"gov_ops_key":    "gov",
	"site_alpha_key": "site:Site_Alpha",
	"site_beta_key":  "site:Site_Beta",
	"site_gamma_key": "site:Site_Gamma",
	"test_key":       "gov",
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using system environment variables")
	}
	cfg := config.Load()
	if !cfg.RedisEnabled() {
		cfg.RedisAddr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	ctx := context.Background()

	fmt.Printf("Connecting to Redis at %s...\n", cfg.RedisAddr)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Redis is running:\n  docker run -p 6379:6379 redis:7", err)
	}
	fmt.Println("✓ Connected")

	catalog, err := config.LoadCatalog(cfg.SitesFile)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	seedKeys(ctx, client, catalog)
	verify(ctx, client)

	fmt.Println("\n✅ Redis seeded successfully")
	fmt.Println("   Try: curl -H 'X-API-Key: site_beta_key' localhost:8080/api/sites")
}

func seedKeys(ctx context.Context, client *redis.Client, catalog *config.Catalog) {
	fmt.Println("\n── Step 1: Seeding API keys ────────────────────")

	// TTL 0: keys never expire
	for _, key := range sortedKeys() {
		grant := apiKeys[key]
		p, ok := auth.ParsePrincipal(grant)
		if !ok {
			log.Fatalf("Bad principal %q for key %s", grant, key)
		}
		if p.Site != "" && !contains(catalog.SiteNames(), p.Site) {
			fmt.Printf("  - %-30s skipped, %s is not in the catalog\n", key, p.Site)
			continue
		}
		if err := client.Set(ctx, store.APIKeyKey(key), grant, 0).Err(); err != nil {
			log.Fatalf("Failed to set key %s: %v", key, err)
		}
		fmt.Printf("  ✓ %-30s → %s\n", store.APIKeyKey(key), grant)
	}
}

func verify(ctx context.Context, client *redis.Client) {
	fmt.Println("\n── Step 2: Verification ────────────────────────")

	keys, err := client.Keys(ctx, store.APIKeyKey("*")).Result()
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}
	fmt.Printf("  ✓ %d API keys found in Redis\n", len(keys))

	val, err := client.Get(ctx, store.APIKeyKey("test_key")).Result()
	if err != nil {
		log.Fatalf("Spot check failed: %v", err)
	}
	fmt.Printf("  ✓ spot check: %s → %s\n", store.APIKeyKey("test_key"), val)
}

func sortedKeys() []string {
	out := make([]string, 0, len(apiKeys))
	for k := range apiKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
