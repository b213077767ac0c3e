package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "CANDLESYNC_CONFIG"

// Config holds everything outside the database connection, which stays in
// the environment as DB_CONN.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Server    ServerConfig    `yaml:"server"`
}

// SourceConfig describes the remote timetable endpoint.
type SourceConfig struct {
	BaseURL  string `yaml:"baseUrl"  validate:"required,url"`
	Endpoint string `yaml:"endpoint" validate:"required,startswith=/"`

	// form value selecting the full week interval in one request
	SearchInterval string `yaml:"searchInterval" validate:"required"`

	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds" validate:"gte=1"`
}

func (s SourceConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// SchedulerConfig defines when the watch command runs the pipeline.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression" validate:"required"`
}

// ServerConfig covers the api surface.
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gte=1,lte=65535"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Load reads the YAML file named by CANDLESYNC_CONFIG over the defaults
// and validates the result. No file set means pure defaults.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: cannot read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: cannot parse %s: %w", path, err)
		}
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func Default() Config {
	return Config{
		Source: SourceConfig{
			BaseURL:               "https://candle.fmph.uniba.sk",
			Endpoint:              "/hodiny-v-intervaloch/zoznam",
			SearchInterval:        "Pondelok 00:00-Piatok 23:59",
			RequestTimeoutSeconds: 30,
		},
		Scheduler: SchedulerConfig{
			// refresh before the first morning lectures
			CronExpression: "0 6 * * *",
		},
		Server: ServerConfig{
			Port:           3000,
			AllowedOrigins: []string{"https://majak-app.github.io"},
		},
	}
}
