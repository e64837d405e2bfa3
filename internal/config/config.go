package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Port      string `yaml:"port"`
	DBDriver  string `yaml:"db_driver"` // sqlite or postgres
	DBPath    string `yaml:"db_path"`   // sqlite file or postgres DSN
	JWTSecret string `yaml:"jwt_secret"`

	// SectionsGeoJSON is the electoral section polygon document (file path or URL)
	SectionsGeoJSON string `yaml:"sections_geojson"`
	// SectionsMaxBytes caps the size of that document
	SectionsMaxBytes int64 `yaml:"sections_max_bytes"`
	// SectionFallbackKm bounds the nearest-centroid fallback when assigning sections
	SectionFallbackKm float64 `yaml:"section_fallback_km"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	StatsCacheTTL time.Duration `yaml:"stats_cache_ttl"`

	ClusterRadius  int `yaml:"cluster_radius"`   // pixels
	ClusterMaxZoom int `yaml:"cluster_max_zoom"` // clustering stops above this zoom

	SessionTTL time.Duration `yaml:"session_ttl"`

	RateLimit       int           `yaml:"rate_limit"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or console
}

// Load 加载配置
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Port:              ":8080",
		DBDriver:          "sqlite",
		DBPath:            "./data/affiliates.db",
		SectionsGeoJSON:   "./data/geo/secciones_navojoa.geojson",
		SectionsMaxBytes:  64 << 20,
		SectionFallbackKm: 1.5,
		StatsCacheTTL:     5 * time.Minute,
		ClusterRadius:     50,
		ClusterMaxZoom:    14,
		SessionTTL:        30 * time.Minute,
		RateLimit:         300,
		RateLimitWindow:   time.Minute,
		LogLevel:          "info",
		LogFormat:         "console",
	}
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Port, "PORT")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.SectionsGeoJSON, "SECTIONS_GEOJSON")
	setInt64(&c.SectionsMaxBytes, "SECTIONS_MAX_BYTES")
	setFloat(&c.SectionFallbackKm, "SECTION_FALLBACK_KM")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASS")
	setInt(&c.RedisDB, "REDIS_DB")
	setDuration(&c.StatsCacheTTL, "STATS_CACHE_TTL")
	setInt(&c.ClusterRadius, "CLUSTER_RADIUS")
	setInt(&c.ClusterMaxZoom, "CLUSTER_MAX_ZOOM")
	setDuration(&c.SessionTTL, "SESSION_TTL")
	setInt(&c.RateLimit, "RATE_LIMIT")
	setDuration(&c.RateLimitWindow, "RATE_LIMIT_WINDOW")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if c.Port != "" && c.Port[0] != ':' {
		c.Port = ":" + c.Port
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// 解析失败时保留原值
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
