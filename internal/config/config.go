// Package config assembles the server configuration from environment
// variables, optionally overlaid by a YAML settings file for deployments
// that prefer files over env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redmine   RedmineConfig   `yaml:"redmine"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	SMS       SMSConfig       `yaml:"sms"`
	Travel    TravelConfig    `yaml:"travel"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// RedmineConfig points at the backing Redmine instance.
type RedmineConfig struct {
	URL         string        `yaml:"url"`
	AdminAPIKey string        `yaml:"admin_api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	PageSize    int           `yaml:"page_size"`
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// RedisConfig locates the OTP store. An empty Addr selects the in-memory
// store, which is only suitable for a single instance.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SMSConfig holds the Textware gateway credentials for OTP delivery.
type SMSConfig struct {
	APIURL   string `yaml:"api_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

// TravelConfig holds the geocoding and routing settings used for transport
// permit validity estimates.
type TravelConfig struct {
	ORSAPIKey    string `yaml:"ors_api_key"`
	NominatimURL string `yaml:"nominatim_url"`
	UserAgent    string `yaml:"user_agent"`
}

// RateLimitConfig bounds unauthenticated OTP requests per phone number.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// Default returns the configuration used when neither env nor file set a
// value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Redmine: RedmineConfig{
			Timeout:  30 * time.Second,
			PageSize: 100,
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
		SMS: SMSConfig{
			APIURL: "https://cloud.textware.lk:5001/sms/send_sms.php",
			Sender: "GSMB",
		},
		Travel: TravelConfig{
			NominatimURL: "https://nominatim.openstreetmap.org",
			UserAgent:    "gsmb-backend/1.0",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 5,
			Burst:             5,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables. Env wins.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) loadEnv() {
	setString(&c.Redmine.URL, "REDMINE_URL")
	setString(&c.Redmine.AdminAPIKey, "REDMINE_ADMIN_API_KEY")
	setString(&c.Auth.JWTSecret, "JWT_SECRET_KEY")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")
	setString(&c.SMS.APIURL, "SMS_API_URL")
	setString(&c.SMS.Username, "SMS_USERNAME")
	setString(&c.SMS.Password, "SMS_PASSWORD")
	setString(&c.SMS.Sender, "SMS_SENDER")
	setString(&c.Travel.ORSAPIKey, "ORS_API_KEY")
	setString(&c.Travel.NominatimURL, "NOMINATIM_URL")
	setInt(&c.Server.Port, "PORT")

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			c.Server.AllowedOrigins = origins
		}
	}
}

func (c *Config) validate() error {
	if c.Redmine.URL == "" || c.Redmine.AdminAPIKey == "" {
		return errors.New("config: Redmine URL or API key is missing")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET_KEY is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
