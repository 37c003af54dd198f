package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tonghsuan/chirp/pkgs/database"
)

////////////////////////////////////////////////////////////////////////////////
// Configuration Structures
////////////////////////////////////////////////////////////////////////////////

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// Config is the application configuration shared by the server and the
// maintenance tools.
type Config struct {
	Database database.Config `yaml:"database"`
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
}

////////////////////////////////////////////////////////////////////////////////
// Configuration Management Functions
////////////////////////////////////////////////////////////////////////////////

// Read loads configuration from the given YAML file. A DATABASE_URL
// environment variable, when set, overrides the database section wholesale.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result Config
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		result.Database = database.Config{URL: url}
	}

	applyDefaults(&result)
	return &result, nil
}

// Load reads the config file when it exists and falls back to defaults (plus
// environment overrides) when path is empty or missing.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Read(path)
}

// Default returns a configuration suitable for local development when no
// config file exists.
func Default() *Config {
	cfg := &Config{}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database = database.Config{URL: url}
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.URL == "" {
		if cfg.Database.Host == "" {
			cfg.Database.Host = "localhost"
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.DBName == "" {
			cfg.Database.DBName = "chirp"
		}
	}
}
