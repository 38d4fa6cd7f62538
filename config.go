package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the process configuration. Flags override LIVEBID_* env vars.
type Config struct {
	ServerURL      string
	InstanceID     string
	LogLevel       string
	AllowedOrigins []string

	Mongo MongoConfig
	Redis RedisConfig

	MinRebidIncrement float64
	CASMaxRetries     int

	PersistMaxAttempts    int
	PersistInitialBackoff time.Duration
	PersistMaxBackoff     time.Duration
	PersistWorkers        int

	WindowCacheSize int
	WindowCacheTTL  time.Duration

	BroadcastShards   int
	WSIdleTimeout     time.Duration
	WSSendBuffer      int
	ReconcileInterval time.Duration
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

// ParseConfig reads flags from args and the environment
func ParseConfig(args []string) (Config, error) {
	flags := pflag.NewFlagSet("live-bidding", pflag.ContinueOnError)

	// server config
	flags.String("server-url", "0.0.0.0:8080", "listen address")
	flags.String("instance-id", "", "instance name used on the relay stream, defaults to the hostname")
	flags.String("log-level", "info", "")
	flags.StringSlice("allowed-origins", nil, "browser origins allowed by CORS, empty allows any")

	// store of record
	flags.String("mongo-uri", "", "empty keeps bid state in memory")
	flags.String("mongo-database", "auction", "")
	flags.String("mongo-collection", "products", "")

	// redis relay
	flags.String("redis-addr", "", "empty disables the cross-instance relay")
	flags.String("redis-password", "", "")
	flags.Int("redis-db", 0, "")
	flags.String("redis-stream", "live-bidding-commits", "")

	// bidding rules
	flags.Float64("min-rebid-increment", 0, "minimum raise when the highest bidder bids again")
	flags.Int("cas-max-retries", 8, "")

	// durable writes
	flags.Int("persist-max-attempts", 5, "")
	flags.Duration("persist-initial-backoff", 100*time.Millisecond, "")
	flags.Duration("persist-max-backoff", 5*time.Second, "")
	flags.Int("persist-workers", 2, "")
	flags.Duration("reconcile-interval", 30*time.Second, "")

	// caches and fan-out
	flags.Int("window-cache-size", 4096, "")
	flags.Duration("window-cache-ttl", 30*time.Second, "")
	flags.Int("broadcast-shards", 8, "")
	flags.Duration("ws-idle-timeout", 60*time.Second, "")
	flags.Int("ws-send-buffer", 64, "")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	// bind pflag to viper
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, err
	}
	v.SetEnvPrefix("LIVEBID")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := Config{
		ServerURL:      v.GetString("server-url"),
		InstanceID:     v.GetString("instance-id"),
		LogLevel:       v.GetString("log-level"),
		AllowedOrigins: v.GetStringSlice("allowed-origins"),
		Mongo: MongoConfig{
			URI:        v.GetString("mongo-uri"),
			Database:   v.GetString("mongo-database"),
			Collection: v.GetString("mongo-collection"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis-addr"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
			Stream:   v.GetString("redis-stream"),
		},
		MinRebidIncrement:     v.GetFloat64("min-rebid-increment"),
		CASMaxRetries:         v.GetInt("cas-max-retries"),
		PersistMaxAttempts:    v.GetInt("persist-max-attempts"),
		PersistInitialBackoff: v.GetDuration("persist-initial-backoff"),
		PersistMaxBackoff:     v.GetDuration("persist-max-backoff"),
		PersistWorkers:        v.GetInt("persist-workers"),
		WindowCacheSize:       v.GetInt("window-cache-size"),
		WindowCacheTTL:        v.GetDuration("window-cache-ttl"),
		BroadcastShards:       v.GetInt("broadcast-shards"),
		WSIdleTimeout:         v.GetDuration("ws-idle-timeout"),
		WSSendBuffer:          v.GetInt("ws-send-buffer"),
		ReconcileInterval:     v.GetDuration("reconcile-interval"),
	}
	if cfg.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "live-bidding"
		}
		cfg.InstanceID = host
	}
	return cfg, nil
}

// Validate reports the first unusable setting
func (c Config) Validate() error {
	switch {
	case c.ServerURL == "":
		return errors.New("config: server-url is required")
	case c.MinRebidIncrement < 0:
		return fmt.Errorf("config: min-rebid-increment must not be negative, got %v", c.MinRebidIncrement)
	case c.CASMaxRetries <= 0:
		return fmt.Errorf("config: cas-max-retries must be positive, got %d", c.CASMaxRetries)
	case c.PersistMaxAttempts <= 0:
		return fmt.Errorf("config: persist-max-attempts must be positive, got %d", c.PersistMaxAttempts)
	case c.PersistWorkers <= 0:
		return fmt.Errorf("config: persist-workers must be positive, got %d", c.PersistWorkers)
	case c.PersistInitialBackoff <= 0 || c.PersistMaxBackoff < c.PersistInitialBackoff:
		return errors.New("config: persist backoff must be positive and max >= initial")
	case c.BroadcastShards <= 0:
		return fmt.Errorf("config: broadcast-shards must be positive, got %d", c.BroadcastShards)
	case c.WindowCacheSize <= 0:
		return fmt.Errorf("config: window-cache-size must be positive, got %d", c.WindowCacheSize)
	case c.Mongo.URI != "" && (c.Mongo.Database == "" || c.Mongo.Collection == ""):
		return errors.New("config: mongo-database and mongo-collection are required with mongo-uri")
	case c.Redis.Addr != "" && c.Redis.Stream == "":
		return errors.New("config: redis-stream is required with redis-addr")
	}
	return nil
}
