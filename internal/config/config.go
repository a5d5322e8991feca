package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Redis       RedisConfig       `yaml:"redis"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Quiz        QuizConfig        `yaml:"quiz"`
	API         APIConfig         `yaml:"api"`
	Storage     StorageConfig     `yaml:"storage"`
	Extra       ExtraConfig       `yaml:"extra"`
	Certificate CertificateConfig `yaml:"certificate"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	TTL      string `yaml:"ttl" env:"REDIS_TTL"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"POSTGRES_URL"`
}

// QuizConfig controls where question sets come from, how long they are cached,
// and the genre/level catalog. Empty catalog fields keep the built-in names.
type QuizConfig struct {
	TTL    string   `yaml:"ttl" env:"QUIZ_TTL"`
	File   string   `yaml:"file" env:"QUIZ_QUESTIONS_FILE"`
	Genres []string `yaml:"genres" env:"QUIZ_GENRES" envSeparator:","`
	Levels []string `yaml:"levels" env:"QUIZ_LEVELS" envSeparator:","`
	Ultra  string   `yaml:"ultra" env:"QUIZ_ULTRA"`

	// ExtraGenre is the genre the remote leaderboard uses for the extra stage.
	ExtraGenre string `yaml:"extra_genre" env:"QUIZ_EXTRA_GENRE"`
}

// APIConfig points at the remote question/scoring API.
type APIConfig struct {
	URL     string `yaml:"url" env:"QUIZ_API_URL"`
	Timeout string `yaml:"timeout" env:"QUIZ_API_TIMEOUT"`
}

// StorageConfig selects the key-value backend holding nickname, device id,
// best score and certificates: "memory", "sqlite" or "redis".
type StorageConfig struct {
	Driver string `yaml:"driver" env:"QUIZ_STORAGE"`
	Path   string `yaml:"path" env:"QUIZ_STORAGE_PATH"`
}

type ExtraConfig struct {
	QuestionTime string `yaml:"question_time" env:"QUIZ_QUESTION_TIME"`
	WarningTime  string `yaml:"warning_time" env:"QUIZ_WARNING_TIME"`
	ShareURL     string `yaml:"share_url" env:"QUIZ_SHARE_URL"`
}

type CertificateConfig struct {
	FontPath string `yaml:"font_path" env:"QUIZ_CERT_FONT"`
	OutDir   string `yaml:"out_dir" env:"QUIZ_CERT_DIR"`
}

// LogConfig selects the encoder. File receives the log while a terminal UI is running.
type LogConfig struct {
	Mode string `yaml:"mode" env:"LOG_MODE"`
	File string `yaml:"file" env:"LOG_FILE"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error; defaults and the environment still apply.
func Load(path string) (Config, error) {
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
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "quiz.db"
	}
	if c.Log.File == "" {
		c.Log.File = "quiz-gauntlet.log"
	}
	if c.Quiz.ExtraGenre == "" {
		c.Quiz.ExtraGenre = "エクストラステージ"
	}
	if c.Certificate.OutDir == "" {
		c.Certificate.OutDir = "certificates"
	}
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
