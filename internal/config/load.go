package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	Bot       BotConfig       `json:"bot"`
	Detection DetectionConfig `json:"detection"`
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Notify    NotifyConfig    `json:"notify"`
	Ingest    IngestConfig    `json:"ingest"`
	Runtime   RuntimeConfig   `json:"runtime"`
}

type BotConfig struct {
	Token string `json:"token"`
}

type DetectionConfig struct {
	Enabled            bool       `json:"enabled"`
	SweepIntervalMs    int64      `json:"sweep_interval_ms"`
	BaselineIntervalMs int64      `json:"baseline_interval_ms"`
	Thresholds         Thresholds `json:"thresholds"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type LoggingConfig struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

type MetricsConfig struct {
	Enabled    bool   `json:"enabled"`
	ListenAddr string `json:"listen_addr"`
}

type NotifyConfig struct {
	WebhookURL    string `json:"webhook_url"`
	ChannelID     string `json:"channel_id"`
	WorkerCount   int    `json:"worker_count"`
	HTTPPoolSize  int    `json:"http_pool_size"`
	QueueCapacity int    `json:"queue_capacity"`
}

type IngestConfig struct {
	FeedURL    string `json:"feed_url"`
	BufferSize uint32 `json:"buffer_size"`
}

type RuntimeConfig struct {
	PinCPU    bool `json:"pin_cpu"`
	EngineCPU int  `json:"engine_cpu"`
}

var globalConfig *Config

// Load reads the JSON config file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	globalConfig = cfg
	return cfg, nil
}

// LoadOrDefault falls back to defaults when the file is missing or invalid.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = DefaultConfig()
		applyEnv(cfg)
		globalConfig = cfg
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if webhook := os.Getenv("ALERT_WEBHOOK_URL"); webhook != "" {
		cfg.Notify.WebhookURL = webhook
	}
}

func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			Enabled:            true,
			SweepIntervalMs:    60_000,
			BaselineIntervalMs: 300_000,
			Thresholds:         DefaultThresholds(),
		},
		Database: DatabaseConfig{
			Path: "guildwatch.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: ":9109",
		},
		Notify: NotifyConfig{
			WorkerCount:   4,
			HTTPPoolSize:  4,
			QueueCapacity: 4096,
		},
		Ingest: IngestConfig{
			BufferSize: 65536,
		},
		Runtime: RuntimeConfig{
			EngineCPU: 1,
		},
	}
}

func Get() *Config {
	if globalConfig == nil {
		return DefaultConfig()
	}
	return globalConfig
}
