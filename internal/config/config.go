package config

import (
	"os"
	"sync"
	"time"
)

type Config struct {
	Host           string
	Port           int
	LogLevel       string
	DBPath         string
	JournalEnabled bool
	JournalLimit   int
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadFromEnv() Config {
	host := os.Getenv("KERNELACTIVITY_HOST")
	if host == "" {
		host = "127.0.0.1"
	}

	port := 8888
	if p := os.Getenv("KERNELACTIVITY_PORT"); p != "" {
		if n := atoiOrDefault(p, 8888); n > 0 {
			port = n
		}
	}

	level := os.Getenv("KERNELACTIVITY_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	dbPath := os.Getenv("KERNELACTIVITY_DB_PATH")
	journalEnabled := os.Getenv("KERNELACTIVITY_JOURNAL") != "0"
	journalLimit := atoiOrDefault(os.Getenv("KERNELACTIVITY_JOURNAL_LIMIT"), 100)

	return Config{
		Host:           host,
		Port:           port,
		LogLevel:       level,
		DBPath:         dbPath,
		JournalEnabled: journalEnabled,
		JournalLimit:   journalLimit,
	}
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
