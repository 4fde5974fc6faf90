package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type CanvasConfig struct {
	BaseURL string `yaml:"base_url"`
}

type TodoistConfig struct {
	SyncURL string `yaml:"sync_url"`
	RestURL string `yaml:"rest_url"`
}

type SyncConfig struct {
	// Timezone assignments are normalized into before due-date comparisons.
	// Canvas reports due dates in UTC.
	Timezone string `yaml:"timezone"`
	// Maximum number of remote creates per sync run.
	CreateLimit int `yaml:"create_limit"`
	// Maximum number of cached session credential pairs.
	SessionCacheSize int `yaml:"session_cache_size"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Enabled  bool   `yaml:"enabled"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`
	Canvas   CanvasConfig   `yaml:"canvas"`
	Todoist  TodoistConfig  `yaml:"todoist"`
	Sync     SyncConfig     `yaml:"sync"`
	Telegram TelegramConfig `yaml:"telegram"`
}

func LoadConfig() *Config {
	path := os.Getenv("EAGLETASK_CONFIG")
	if path == "" {
		path = "config/config.yaml"
	}

	f, err := os.Open(path)
	if err != nil {
		panic("Failed to open config.yaml: " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse config.yaml: " + err.Error())
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Canvas.BaseURL == "" {
		cfg.Canvas.BaseURL = "https://canvas.instructure.com"
	}
	if cfg.Todoist.SyncURL == "" {
		cfg.Todoist.SyncURL = "https://api.todoist.com/sync/v9"
	}
	if cfg.Todoist.RestURL == "" {
		cfg.Todoist.RestURL = "https://api.todoist.com/rest/v2"
	}
	if cfg.Sync.Timezone == "" {
		cfg.Sync.Timezone = "America/New_York"
	}
	if cfg.Sync.CreateLimit == 0 {
		cfg.Sync.CreateLimit = 25
	}
	if cfg.Sync.SessionCacheSize == 0 {
		cfg.Sync.SessionCacheSize = 512
	}
	return &cfg
}
