package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"roomsheet/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Google     GoogleConfig     `yaml:"google"`
	Sheet      SheetConfig      `yaml:"sheet"`
	Redis      RedisConfig      `yaml:"redis"`
	Journal    JournalConfig    `yaml:"journal"`
	Notify     NotifyConfig     `yaml:"notify"`
	Exports    ExportConfig     `yaml:"exports"`
	Rooms      []models.Room    `yaml:"rooms"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig         `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	CredentialsFile string  `yaml:"credentials_file"`
	ClientID        string  `yaml:"client_id"`
	ClientSecret    string  `yaml:"client_secret"`
	RefreshToken    string  `yaml:"refresh_token"`
	SpreadsheetID   string  `yaml:"spreadsheet_id"`
	ProbeGIDs       []int64 `yaml:"probe_gids"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

type SheetConfig struct {
	Timezone        string `yaml:"timezone"`
	SettleDelayMS   int    `yaml:"settle_delay_ms"`
	HeaderScanLimit int    `yaml:"header_scan_limit"`
}

type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	PoolSize        int    `yaml:"pool_size"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

type JournalConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; variables already in the environment win.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} references before unmarshalling.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Google.SpreadsheetID == "" {
		return errors.New("google spreadsheet id is required")
	}

	hasServiceAccount := c.Google.CredentialsFile != ""
	hasRefreshToken := c.Google.ClientID != "" && c.Google.ClientSecret != "" && c.Google.RefreshToken != ""
	if !hasServiceAccount && !hasRefreshToken {
		return errors.New("google credentials are required: set credentials_file or client_id/client_secret/refresh_token")
	}

	if _, err := time.LoadLocation(c.Sheet.Timezone); err != nil {
		return fmt.Errorf("invalid sheet timezone %q: %w", c.Sheet.Timezone, err)
	}

	if c.Journal.Path == "" {
		return errors.New("journal path is required")
	}

	if c.Notify.Enabled {
		if c.Notify.BotToken == "" {
			return errors.New("notify bot token is required when notify is enabled")
		}
		if c.Notify.ChatID == 0 {
			return errors.New("notify chat id is required when notify is enabled")
		}
	}

	return ValidateRooms(c.Rooms)
}

// ValidateRooms enforces the two-room catalogue the sheet layout encodes:
// each room maps to one flag column, and there are exactly two of those.
func ValidateRooms(rooms []models.Room) error {
	if len(rooms) != 2 {
		return fmt.Errorf("exactly 2 rooms are required, got %d", len(rooms))
	}

	seen := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		if room.ID == "" {
			return fmt.Errorf("room %q has empty id", room.Name)
		}
		if room.Name == "" {
			return fmt.Errorf("room %q has empty display name", room.ID)
		}
		if seen[room.ID] {
			return fmt.Errorf("duplicate room id: %s", room.ID)
		}
		seen[room.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "roomsheet"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when the API is enabled
	if !c.API.Auth.Enabled && c.API.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if len(c.Google.ProbeGIDs) == 0 {
		c.Google.ProbeGIDs = []int64{0}
	}
	if c.Google.RateLimitRPS == 0 {
		c.Google.RateLimitRPS = 4
	}
	if c.Google.RateLimitBurst == 0 {
		c.Google.RateLimitBurst = 8
	}

	if c.Sheet.Timezone == "" {
		c.Sheet.Timezone = "Asia/Ho_Chi_Minh"
	}
	if c.Sheet.SettleDelayMS == 0 {
		c.Sheet.SettleDelayMS = 1000
	}
	if c.Sheet.HeaderScanLimit == 0 {
		c.Sheet.HeaderScanLimit = 20
	}

	if c.Redis.CacheTTLSeconds == 0 {
		c.Redis.CacheTTLSeconds = 600
	}

	if c.Journal.Path == "" {
		c.Journal.Path = "./data/roomsheet.db"
	}
	if c.Journal.RetentionDays == 0 {
		c.Journal.RetentionDays = 30
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "./exports"
	}

	if len(c.Rooms) == 0 {
		c.Rooms = models.DefaultRooms()
	}
}

// SettleDelay is the pause between a sheet write and the background
// re-fetch of the affected month.
func (c SheetConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// Location resolves the configured timezone. Validate has already checked
// that the name parses.
func (c SheetConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
