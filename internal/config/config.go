package config

import (
	"fmt"
	"os"
	"time"

	"sheet-quiz/internal/domain"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	// Endpoint is the spreadsheet script URL serving questions and accepting results.
	Endpoint        string `yaml:"endpoint"`
	EndpointTimeout string `yaml:"endpoint_timeout"`
	Quiz            Quiz   `yaml:"quiz"`
	Attempts        struct {
		Store string `yaml:"store"` // memory, file or redis
		Path  string `yaml:"path"`
	} `yaml:"attempts"`
	Report struct {
		Retries int    `yaml:"retries"`
		Backoff string `yaml:"backoff"`
		Archive bool   `yaml:"archive"`
	} `yaml:"report"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console or json
		File   string `yaml:"file"`
	} `yaml:"log"`
}

type Quiz struct {
	Policy        domain.ScoringPolicy `yaml:"policy"`
	Shuffle       bool                 `yaml:"shuffle"`
	Instructions  string               `yaml:"instructions"`
	MaxAttempts   int                  `yaml:"max_attempts"`
	CheckEmail    string               `yaml:"check_email"` // "", sheet or archive
	ReportAnswers *bool                `yaml:"report_answers"`
	// Source selects where questions come from: sheet (default), postgres or static.
	Source      string `yaml:"source"`
	QuestionSet string `yaml:"question_set"`
	QuestionTTL string `yaml:"question_ttl"`
}

// Default returns the stock settings: shuffled questions,
// any-correct-no-wrong scoring and full answer reporting.
func Default() Config {
	cfg := Config{}
	cfg.Quiz.Policy = domain.PolicyAnyCorrectNoWrong
	cfg.Quiz.Shuffle = true
	cfg.Quiz.Source = "sheet"
	cfg.Quiz.QuestionSet = "default"
	cfg.Attempts.Store = "memory"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the wiring cannot honour.
func (c Config) Validate() error {
	if !c.Quiz.Policy.Valid() {
		return fmt.Errorf("quiz.policy: unknown policy %q", c.Quiz.Policy)
	}
	switch c.Quiz.Source {
	case "sheet", "":
		if c.Endpoint == "" {
			return fmt.Errorf("endpoint is required for the sheet question source")
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return fmt.Errorf("quiz.source postgres needs postgres.url")
		}
	case "static":
	default:
		return fmt.Errorf("quiz.source: unknown source %q", c.Quiz.Source)
	}
	switch c.Attempts.Store {
	case "memory", "":
	case "file":
		if c.Attempts.Path == "" {
			return fmt.Errorf("attempts.path is required for the file store")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("attempts.store redis needs redis.addr")
		}
	default:
		return fmt.Errorf("attempts.store: unknown store %q", c.Attempts.Store)
	}
	switch c.Quiz.CheckEmail {
	case "":
	case "sheet":
		if c.Endpoint == "" {
			return fmt.Errorf("quiz.check_email sheet needs endpoint")
		}
	case "archive":
		if c.Postgres.URL == "" {
			return fmt.Errorf("quiz.check_email archive needs postgres.url")
		}
	default:
		return fmt.Errorf("quiz.check_email: unknown checker %q", c.Quiz.CheckEmail)
	}
	if c.Quiz.MaxAttempts < 0 {
		return fmt.Errorf("quiz.max_attempts must not be negative")
	}
	if c.Report.Archive && c.Postgres.URL == "" {
		return fmt.Errorf("report.archive needs postgres.url")
	}
	return nil
}

// ReportsAnswers reports whether result payloads carry per-question detail.
func (q Quiz) ReportsAnswers() bool {
	return q.ReportAnswers == nil || *q.ReportAnswers
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
