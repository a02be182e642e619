package config

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		CookieName   string `yaml:"cookie_name"`
		CookieSecure bool   `yaml:"cookie_secure"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		QuestionsPath    string `yaml:"questions_path"`
		BankName         string `yaml:"bank_name"`
		TTL              string `yaml:"ttl"`
		DefaultAmount    int    `yaml:"default_amount"`
		LeaderboardLimit int    `yaml:"leaderboard_limit"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path. A missing file yields defaults. Values
// from the environment (and a .env file, when present) take precedence.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Server.Port, "PORT")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	override(&cfg.SQLite.Path, "DB_PATH")
	override(&cfg.Quiz.QuestionsPath, "QUESTIONS_PATH")
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Server.CookieSecure = b
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.CookieName == "" {
		cfg.Server.CookieName = "arcquiz_visitor"
	}
	if cfg.Quiz.BankName == "" {
		cfg.Quiz.BankName = "default"
	}
	if cfg.Quiz.DefaultAmount <= 0 {
		cfg.Quiz.DefaultAmount = 10
	}
	if cfg.Quiz.LeaderboardLimit <= 0 {
		cfg.Quiz.LeaderboardLimit = 20
	}
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// SQLitePath resolves where the leaderboard database lives. Serverless Linux
// hosts only allow writes under /tmp; Windows keeps the file next to the binary.
func (c Config) SQLitePath() string {
	if c.SQLite.Path != "" {
		return c.SQLite.Path
	}
	if runtime.GOOS != "windows" {
		return "/tmp/quiz.db"
	}
	return "quiz.db"
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
