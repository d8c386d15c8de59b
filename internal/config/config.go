package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"craftsmen_front/internal/validator"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port" validate:"min=1,max=65535"`
		Env  string `yaml:"env" validate:"omitempty,oneof=development test production"`
	} `yaml:"server"`

	API struct {
		BaseURL        string `yaml:"base_url" validate:"required,url"`
		TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=0"`
	} `yaml:"api"`

	Realtime struct {
		URL               string `yaml:"url" validate:"omitempty,url"`
		Enabled           bool   `yaml:"enabled"`
		MaxBackoffSeconds int    `yaml:"max_backoff_seconds" validate:"min=0"`
	} `yaml:"realtime"`

	Notifications struct {
		Enabled             bool `yaml:"enabled"`
		Limit               int  `yaml:"limit" validate:"min=1,max=100"`
		PollIntervalSeconds int  `yaml:"poll_interval_seconds" validate:"min=0"`
	} `yaml:"notifications"`

	Auth struct {
		Token    string `yaml:"token"`
		Email    string `yaml:"email" validate:"omitempty,email"`
		Password string `yaml:"password"`
	} `yaml:"auth"`
}

// APITimeout - таймаут HTTP клиента удаленного API
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// PollInterval - период обновления уведомлений (0 - без опроса)
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Notifications.PollIntervalSeconds) * time.Second
}

// MaxBackoff - верхняя граница паузы между переподключениями
func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.Realtime.MaxBackoffSeconds) * time.Second
}

// Address - адрес локального HTTP сервера
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	var cfg Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 4000
	cfg.Server.Env = "development"
	cfg.API.TimeoutSeconds = 10
	cfg.Realtime.MaxBackoffSeconds = 30
	cfg.Notifications.Enabled = true
	cfg.Notifications.Limit = 20
	cfg.Notifications.PollIntervalSeconds = 60
	return &cfg
}

var AppConfig *Config

// Load читает YAML (если файл есть), применяет переменные окружения и валидирует.
// Отсутствующий файл не ошибка: все можно задать через env.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// только env
		default:
			return nil, fmt.Errorf("failed to open config file at %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Realtime.Enabled && cfg.Realtime.URL == "" {
		return nil, fmt.Errorf("invalid configuration: realtime.url is required when realtime is enabled")
	}

	return cfg, nil
}

// LoadConfig загружает конфиг в AppConfig (CONFIG_PATH или config/config.yaml)
func LoadConfig() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("SERVER_ENV", &cfg.Server.Env)
	setString("API_BASE_URL", &cfg.API.BaseURL)
	setString("ACCESS_TOKEN", &cfg.Auth.Token)
	setString("LOGIN_EMAIL", &cfg.Auth.Email)
	setString("LOGIN_PASSWORD", &cfg.Auth.Password)

	if v, ok := os.LookupEnv("WS_URL"); ok {
		cfg.Realtime.URL = v
		cfg.Realtime.Enabled = v != ""
	}

	if err := setInt("SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	return setInt("NOTIFICATIONS_LIMIT", &cfg.Notifications.Limit)
}
