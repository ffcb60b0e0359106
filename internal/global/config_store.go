package global

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const configTOMLFileName = "config.toml"

type JournalConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled"`
	Limit   int    `json:"limit" toml:"limit"`
	DBPath  string `json:"db_path,omitempty" toml:"db_path,omitempty"`
}

// GatewayConfig holds persistent gateway settings. Environment variables
// take precedence over the file at load time.
type GatewayConfig struct {
	Host     string        `json:"host" toml:"host"`
	Port     int           `json:"port" toml:"port"`
	LogLevel string        `json:"log_level" toml:"log_level"`
	Journal  JournalConfig `json:"journal" toml:"journal"`
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

func (s *ConfigStore) LoadOrInit() (GatewayConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return GatewayConfig{}, err
	}

	path := filepath.Join(s.dir, configTOMLFileName)
	if b, err := os.ReadFile(path); err == nil {
		var cfg GatewayConfig
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return GatewayConfig{}, err
		}
		return normalizeConfig(cfg), nil
	} else if !os.IsNotExist(err) {
		return GatewayConfig{}, err
	}

	cfg := normalizeConfig(GatewayConfig{Journal: JournalConfig{Enabled: true}})
	if err := writeTOMLAtomically(path, cfg); err != nil {
		return GatewayConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg GatewayConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, configTOMLFileName), normalizeConfig(cfg))
}

func normalizeConfig(cfg GatewayConfig) GatewayConfig {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port <= 0 {
		cfg.Port = 8888
	}
	level := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		level = "info"
	}
	cfg.LogLevel = level
	if cfg.Journal.Limit <= 0 {
		cfg.Journal.Limit = 100
	}
	cfg.Journal.DBPath = strings.TrimSpace(cfg.Journal.DBPath)
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
