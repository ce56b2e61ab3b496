package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"web/polaris/cluster"
	"web/polaris/region"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Runner RunnerConfig `mapstructure:"runner"`
	Store  StoreConfig  `mapstructure:"store"`
	Redis  RedisConfig  `mapstructure:"redis"`
	NATS   NATSConfig   `mapstructure:"nats"`
	Map    MapConfig    `mapstructure:"map"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPPort     int           `mapstructure:"http_port"`
	GRPCPort     int           `mapstructure:"grpc_port"`
	RunnerAddr   string        `mapstructure:"runner_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RunnerConfig struct {
	MaxSessions     int           `mapstructure:"max_sessions"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// StoreConfig selects where datasets are kept: "file" or "redis".
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	UseMMap bool   `mapstructure:"use_mmap"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// MapConfig holds the defaults of new map sessions.
type MapConfig struct {
	Width        int           `mapstructure:"width"`
	Height       int           `mapstructure:"height"`
	Zoom         int           `mapstructure:"zoom"`
	GridSize     int           `mapstructure:"grid_size"`
	Density      float32       `mapstructure:"density"`
	ConfirmDelay time.Duration `mapstructure:"confirm_delay"`
	Low          int           `mapstructure:"low"`
	Medium       int           `mapstructure:"medium"`
}

// ClusterConfig builds the tier configuration of the clusterer.
func (m MapConfig) ClusterConfig() (*cluster.Config, error) {
	return cluster.NewConfig(m.Low, m.Medium)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, an optional config file and
// environment variables.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()
	setDefaults(v)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig()

	// Environment variables: POLARIS_REDIS_ADDR → redis.addr
	v.SetEnvPrefix("POLARIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", service, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.runner_addr", "localhost:50051")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("runner.max_sessions", 5)
	v.SetDefault("runner.session_ttl", 30*time.Minute)
	v.SetDefault("runner.cleanup_interval", 5*time.Minute)
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.dir", "data/datasets")
	v.SetDefault("store.use_mmap", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "polaris")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("map.width", 1024)
	v.SetDefault("map.height", 768)
	v.SetDefault("map.zoom", 3)
	v.SetDefault("map.grid_size", cluster.DefaultGridSize)
	v.SetDefault("map.density", 1.0)
	v.SetDefault("map.confirm_delay", region.DefaultConfirmDelay)
	v.SetDefault("map.low", cluster.DefaultLowThreshold)
	v.SetDefault("map.medium", cluster.DefaultMediumThreshold)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("server.http_port must be 1-65535, got %d", c.Server.HTTPPort))
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("server.grpc_port must be 1-65535, got %d", c.Server.GRPCPort))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Runner.MaxSessions <= 0 {
		errs = append(errs, fmt.Sprintf("runner.max_sessions must be positive, got %d", c.Runner.MaxSessions))
	}
	if c.Runner.SessionTTL <= 0 {
		errs = append(errs, "runner.session_ttl must be positive")
	}
	if c.Runner.CleanupInterval <= 0 {
		errs = append(errs, "runner.cleanup_interval must be positive")
	}
	switch c.Store.Backend {
	case "file":
		if c.Store.Dir == "" {
			errs = append(errs, "store.dir is required for the file backend")
		}
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, "redis.addr is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.backend must be file or redis, got %q", c.Store.Backend))
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		errs = append(errs, fmt.Sprintf("map size must be positive, got %dx%d", c.Map.Width, c.Map.Height))
	}
	if c.Map.GridSize <= 0 {
		errs = append(errs, "map.grid_size must be positive")
	}
	if c.Map.Density <= 0 {
		errs = append(errs, "map.density must be positive")
	}
	if c.Map.ConfirmDelay <= 0 {
		errs = append(errs, "map.confirm_delay must be positive")
	}
	if c.Map.Medium <= c.Map.Low {
		errs = append(errs, fmt.Sprintf("map.medium must be greater than map.low, got %d <= %d", c.Map.Medium, c.Map.Low))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
