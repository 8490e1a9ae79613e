package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimit is a fixed-window rate-limit spec: at most Limit increments per
// Window.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// PerSecond returns the budget expressed as requests per second.
func (r RateLimit) PerSecond() float64 {
	if r.Window <= 0 {
		return 0
	}
	return float64(r.Limit) / r.Window.Seconds()
}

// Breaker configures the circuit breaker guarding the similarity service.
type Breaker struct {
	ErrorThreshold float64       // failure ratio at which the circuit opens
	MinimumHits    int           // sample size below which the ratio is ignored
	Window         time.Duration // trailing window over which outcomes are counted
}

// Provider supplies decision-time configuration. Values are read on every
// decision so a host can swap them without restarting workers.
type Provider interface {
	GlobalRateLimit() RateLimit
	ProjectRateLimit() RateLimit
	BreakerConfig() Breaker
	UseReranking() bool
	MetricsSampleRate() float64
	MaxContributingFrames() int
	NeighborCount() int
	ProjectBackfilled(projectID int64) bool
}

// Config holds all burl configuration.
type Config struct {
	Similarity SimilarityConfig
	Limits     LimitsConfig
	Redis      RedisConfig
	LogLevel   string

	// MetricsWebhookURL, when set, mirrors all counters to an HTTP endpoint.
	MetricsWebhookURL string

	// BackfilledProjects lists projects whose one-time similarity backfill has
	// completed. Empty means no project is enabled.
	BackfilledProjects []int64

	// KillswitchProjects lists projects for which the ingest similarity
	// killswitch is active.
	KillswitchProjects []int64
}

// SimilarityConfig holds remote similarity-service settings.
type SimilarityConfig struct {
	Endpoint     string
	Token        string
	Timeout      time.Duration
	UseReranking bool
	Neighbors    int
}

// LimitsConfig holds rate-limit, breaker, and gating thresholds.
type LimitsConfig struct {
	Global            RateLimit
	PerProject        RateLimit
	Breaker           Breaker
	MaxFrames         int
	MetricsSampleRate float64
}

// RedisConfig holds the shared counter/ledger store settings. An empty Addr
// selects the in-process backends.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Similarity: SimilarityConfig{
			Endpoint:     getenv("BURL_SIMILARITY_URL", "http://localhost:9091"),
			Token:        os.Getenv("BURL_SIMILARITY_TOKEN"),
			Timeout:      getenvDuration("BURL_SIMILARITY_TIMEOUT", 10*time.Second),
			UseReranking: getenvBool("BURL_USE_RERANKING", true),
			Neighbors:    getenvInt("BURL_NEIGHBORS", 1),
		},
		Limits: LimitsConfig{
			Global: RateLimit{
				Limit:  getenvInt("BURL_GLOBAL_RATE_LIMIT", 20),
				Window: getenvDuration("BURL_GLOBAL_RATE_WINDOW", time.Second),
			},
			PerProject: RateLimit{
				Limit:  getenvInt("BURL_PROJECT_RATE_LIMIT", 5),
				Window: getenvDuration("BURL_PROJECT_RATE_WINDOW", time.Second),
			},
			Breaker: Breaker{
				ErrorThreshold: getenvFloat("BURL_BREAKER_ERROR_THRESHOLD", 0.5),
				MinimumHits:    getenvInt("BURL_BREAKER_MIN_HITS", 20),
				Window:         getenvDuration("BURL_BREAKER_WINDOW", time.Minute),
			},
			MaxFrames:         getenvInt("BURL_MAX_FRAMES", 50),
			MetricsSampleRate: getenvFloat("BURL_METRICS_SAMPLE_RATE", 1.0),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("BURL_REDIS_ADDR"),
			Password: os.Getenv("BURL_REDIS_PASSWORD"),
			DB:       getenvInt("BURL_REDIS_DB", 0),
		},
		LogLevel:           getenv("BURL_LOG_LEVEL", "info"),
		MetricsWebhookURL:  os.Getenv("BURL_METRICS_WEBHOOK"),
		BackfilledProjects: getenvInt64List("BURL_BACKFILLED_PROJECTS"),
		KillswitchProjects: getenvInt64List("BURL_KILLSWITCH_PROJECTS"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getenvInt64List parses a comma-separated list of integer IDs. Malformed
// elements are skipped.
func getenvInt64List(key string) []int64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
