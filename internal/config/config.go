// Package config carga la configuración del server con viper: archivo
// opcional (config.yaml) pisado por variables de entorno MEDTRACK_*.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  Server  `mapstructure:"server"`
	Auth    Auth    `mapstructure:"auth"`
	Storage Storage `mapstructure:"storage"`
	Log     Log     `mapstructure:"log"`

	Pushover Pushover `mapstructure:"pushover"`
	Moonshot Moonshot `mapstructure:"moonshot"`
}

type Server struct {
	Port int `mapstructure:"port"`
}

type Auth struct {
	// Token estático para el header Authorization. Vacío = modo dev,
	// sin auth.
	Token string `mapstructure:"token"`
}

type Storage struct {
	// Backend: sqlite (default), file, postgres o memory.
	Backend string `mapstructure:"backend"`

	SQLitePath  string `mapstructure:"sqlite_path"`
	FilePath    string `mapstructure:"file_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Pushover struct {
	Token string `mapstructure:"token"`
	User  string `mapstructure:"user"`
}

type Moonshot struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Load lee config.yaml del directorio actual (si existe) y el entorno.
// MEDTRACK_SERVER_PORT=9090 pisa server.port, etc.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MEDTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/medtrack.db")
	v.SetDefault("storage.file_path", "data/medtrack.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("moonshot.model", "moonshot-v1-8k")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.Storage.Backend {
	case "sqlite", "file", "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "postgres" && strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
		return Config{}, errors.New("storage.postgres_dsn required for postgres backend")
	}

	return cfg, nil
}
