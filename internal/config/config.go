// Package config содержит логику чтения конфигурации леджера.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Поддерживаемые алгоритмы хеширования паролей.
const (
	AlgoSHA512 = "sha512"
	AlgoBcrypt = "bcrypt"
)

// Значения конфигурации по умолчанию.
const (
	DefaultSessionTTL   = 60 * time.Second
	DefaultLockTimeout  = 3 * time.Second
	DefaultSaltLength   = 64
	DefaultPasswordAlgo = AlgoSHA512
)

// Config содержит параметры конфигурации леджера.
type Config struct {
	SessionTTL   time.Duration `env:"SESSION_TTL"`
	LockTimeout  time.Duration `env:"LOCK_TIMEOUT"`
	SaltLength   int           `env:"SALT_LENGTH"`
	PasswordAlgo string        `env:"PASSWORD_ALGO"`
}

// fileConfig описывает формат YAML-файла конфигурации. Длительности
// записываются строками в формате time.ParseDuration.
type fileConfig struct {
	SessionTTL   string `yaml:"session_ttl"`
	LockTimeout  string `yaml:"lock_timeout"`
	SaltLength   int    `yaml:"salt_length"`
	PasswordAlgo string `yaml:"password_algo"`
}

// Parse считывает конфигурацию. Приоритет источников: переменные окружения,
// затем флаги командной строки, затем YAML-файл по пути из CONFIG_FILE,
// затем значения по умолчанию.
func Parse() (*Config, error) {
	defaults := Config{
		SessionTTL:   DefaultSessionTTL,
		LockTimeout:  DefaultLockTimeout,
		SaltLength:   DefaultSaltLength,
		PasswordAlgo: DefaultPasswordAlgo,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &defaults); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envSessionTTL := cfg.SessionTTL
	envLockTimeout := cfg.LockTimeout
	envSaltLength := cfg.SaltLength
	envPasswordAlgo := cfg.PasswordAlgo

	flag.DurationVar(&cfg.SessionTTL, "t", defaults.SessionTTL, "session time to live")
	flag.DurationVar(&cfg.LockTimeout, "l", defaults.LockTimeout, "session table lock timeout")
	flag.IntVar(&cfg.SaltLength, "s", defaults.SaltLength, "password salt length in bytes")
	flag.StringVar(&cfg.PasswordAlgo, "p", defaults.PasswordAlgo, "password hashing algorithm: sha512 or bcrypt")

	flag.Parse()

	if envSessionTTL != 0 {
		cfg.SessionTTL = envSessionTTL
	}
	if envLockTimeout != 0 {
		cfg.LockTimeout = envLockTimeout
	}
	if envSaltLength != 0 {
		cfg.SaltLength = envSaltLength
	}
	if envPasswordAlgo != "" {
		cfg.PasswordAlgo = envPasswordAlgo
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, dst *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.SessionTTL != "" {
		d, err := time.ParseDuration(fc.SessionTTL)
		if err != nil {
			return fmt.Errorf("parse session_ttl: %w", err)
		}
		dst.SessionTTL = d
	}
	if fc.LockTimeout != "" {
		d, err := time.ParseDuration(fc.LockTimeout)
		if err != nil {
			return fmt.Errorf("parse lock_timeout: %w", err)
		}
		dst.LockTimeout = d
	}
	if fc.SaltLength != 0 {
		dst.SaltLength = fc.SaltLength
	}
	if fc.PasswordAlgo != "" {
		dst.PasswordAlgo = fc.PasswordAlgo
	}

	return nil
}

func (c *Config) validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock timeout must be positive, got %s", c.LockTimeout)
	}
	if c.SaltLength <= 0 {
		return fmt.Errorf("salt length must be positive, got %d", c.SaltLength)
	}
	if c.PasswordAlgo != AlgoSHA512 && c.PasswordAlgo != AlgoBcrypt {
		return fmt.Errorf("unknown password algorithm %q", c.PasswordAlgo)
	}
	return nil
}
