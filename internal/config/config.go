package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries the settings shared by the server and the collaborator
// jobs. Values come from an optional YAML file with environment-variable
// overrides on top; a `.env` file is loaded first when present.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
	} `yaml:"auth"`
	Simulation struct {
		ServerURL    string   `yaml:"server_url"`
		Symbols      []string `yaml:"symbols"`
		MinTrades    int      `yaml:"min_trades"`
		MaxTrades    int      `yaml:"max_trades"`
		MaxQuantity  int64    `yaml:"max_quantity"`
		LookbackDays int      `yaml:"lookback_days"`
	} `yaml:"simulation"`
	Loader struct {
		ServerURL    string   `yaml:"server_url"`
		BaseURL      string   `yaml:"base_url"`
		Symbols      []string `yaml:"symbols"`
		LookbackDays int      `yaml:"lookback_days"`
	} `yaml:"loader"`
}

// Defaults mirror the development setup; production overrides via env.
func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Database.Path = "portfolio.db"
	cfg.Auth.JWTSecret = "dev-secret-key"
	cfg.Auth.APIKey = "dev-api-key"
	cfg.Auth.APISecret = "dev-api-secret"
	cfg.Simulation.ServerURL = "http://localhost:8080"
	cfg.Simulation.Symbols = []string{"AAPL", "TSLA", "GOOG", "MSFT"}
	cfg.Simulation.MinTrades = 20
	cfg.Simulation.MaxTrades = 40
	cfg.Simulation.MaxQuantity = 50
	cfg.Simulation.LookbackDays = 180
	cfg.Loader.ServerURL = "http://localhost:8080"
	cfg.Loader.BaseURL = "https://stooq.com"
	cfg.Loader.Symbols = []string{"AAPL.US", "TSLA.US", "GOOG.US", "MSFT.US"}
	cfg.Loader.LookbackDays = 40
	return cfg
}

// Load reads the config file at path (skipped when empty or missing) and
// applies environment overrides.
func Load(path string) (*Config, error) {
	// Pick up a local .env if present; absence is not an error.
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("API_SECRET"); v != "" {
		cfg.Auth.APISecret = v
	}
	if v := os.Getenv("SERVER_URL"); v != "" {
		cfg.Simulation.ServerURL = v
		cfg.Loader.ServerURL = v
	}

	return cfg, nil
}
