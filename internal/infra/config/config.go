package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"roomrisk/internal/domain/overbooking"
)

const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
	StoreScylla = "scylla"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env            string
	HTTPAddr       string
	GRPCAddr       string
	RequestTimeout time.Duration

	ReservationStore string
	CatalogStore     string
	CountBookings    bool

	MongoURI string
	MongoDB  string

	ScyllaHosts       []string
	ScyllaKeyspace    string
	ScyllaConsistency string
	ScyllaTimeout     time.Duration

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	KafkaSweepTopics   []string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	IdempotencyTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
	LockWait      time.Duration

	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UseSSL        bool
	SeasonalKey     string
	SeasonalRefresh time.Duration

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	Policy overbooking.Policy
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		Env:               getEnv("APP_ENV", "dev"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:          getEnv("GRPC_ADDR", ":9090"),
		ReservationStore:  strings.ToLower(getEnv("RESERVATION_STORE", StoreMemory)),
		CatalogStore:      strings.ToLower(getEnv("CATALOG_STORE", StoreMemory)),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "roomrisk"),
		ScyllaHosts:       splitList(getEnv("SCYLLA_HOSTS", "")),
		ScyllaKeyspace:    getEnv("SCYLLA_KEYSPACE", "roomrisk"),
		ScyllaConsistency: getEnv("SCYLLA_CONSISTENCY", "LOCAL_QUORUM"),
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicPrefix:  getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "roomrisk-conflict-sweep"),
		KafkaSweepTopics:  splitList(getEnv("KAFKA_SWEEP_TOPICS", "reservation.events.v1,booking.events.v1")),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:       getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		SeasonalKey:       getEnv("SEASONAL_CALENDAR_KEY", "seasonal/periods.json"),
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", 5 * time.Second, &cfg.RequestTimeout},
		{"SCYLLA_TIMEOUT", 5 * time.Second, &cfg.ScyllaTimeout},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"LOCK_TTL", 10 * time.Second, &cfg.LockTTL},
		{"LOCK_WAIT", 3 * time.Second, &cfg.LockWait},
		{"SEASONAL_REFRESH", 15 * time.Minute, &cfg.SeasonalRefresh},
		{"BREAKER_OPEN_TIMEOUT", 30 * time.Second, &cfg.BreakerOpenTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = parseDurationEnv(d.key, d.def); err != nil {
			return Config{}, err
		}
	}

	for _, raw := range splitList(getEnv("RETRY_BACKOFF", "1s,5s,30s")) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.CountBookings, err = parseBoolEnv("COUNT_BOOKINGS", false); err != nil {
		return Config{}, err
	}
	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB = redisDB
	failures, err := parseIntEnv("BREAKER_MAX_FAILURES", 5)
	if err != nil {
		return Config{}, err
	}
	if failures < 1 {
		return Config{}, fmt.Errorf("BREAKER_MAX_FAILURES must be positive")
	}
	cfg.BreakerMaxFailures = uint32(failures)

	if cfg.Policy, err = loadPolicy(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.ReservationStore {
	case StoreMemory:
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for RESERVATION_STORE=mongo")
		}
	case StoreScylla:
		if len(c.ScyllaHosts) == 0 {
			return fmt.Errorf("SCYLLA_HOSTS is required for RESERVATION_STORE=scylla")
		}
	default:
		return fmt.Errorf("unknown RESERVATION_STORE %q", c.ReservationStore)
	}
	switch c.CatalogStore {
	case StoreMemory:
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for CATALOG_STORE=mongo")
		}
	default:
		return fmt.Errorf("unknown CATALOG_STORE %q", c.CatalogStore)
	}
	return nil
}

// loadPolicy builds the global default overbooking policy.
func loadPolicy() (overbooking.Policy, error) {
	p := overbooking.DefaultPolicy()
	var err error
	if p.Enabled, err = parseBoolEnv("OVERBOOKING_ENABLED", p.Enabled); err != nil {
		return p, err
	}
	if p.MaxOverbookingPercentage, err = parseFloatEnv("OVERBOOKING_MAX_PERCENTAGE", p.MaxOverbookingPercentage); err != nil {
		return p, err
	}
	if p.BufferHours, err = parseFloatEnv("OVERBOOKING_BUFFER_HOURS", p.BufferHours); err != nil {
		return p, err
	}
	if p.RiskAlertThreshold, err = parseFloatEnv("OVERBOOKING_RISK_ALERT_THRESHOLD", p.RiskAlertThreshold); err != nil {
		return p, err
	}
	if p.AutoBlockHighRisk, err = parseBoolEnv("OVERBOOKING_AUTO_BLOCK_HIGH_RISK", p.AutoBlockHighRisk); err != nil {
		return p, err
	}
	if raw, ok := os.LookupEnv("OVERBOOKING_ELIGIBLE_TYPES"); ok {
		p.EligiblePropertyTypes = splitList(raw)
	}
	for _, raw := range splitList(os.Getenv("OVERBOOKING_BLACKOUT_DATES")) {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return p, fmt.Errorf("invalid OVERBOOKING_BLACKOUT_DATES entry %q: %w", raw, err)
		}
		p.BlackoutDates = append(p.BlackoutDates, day)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return v, nil
}
