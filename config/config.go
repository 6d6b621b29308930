package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir           string
	ContractPrincipal string
}

// LoadConfig reads settings from a .env file (when present) and the
// process environment.
func LoadConfig() *Config {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:           os.Getenv("POSTOKEN_DATA_DIR"),
		ContractPrincipal: os.Getenv("POSTOKEN_CONTRACT_PRINCIPAL"),
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.ContractPrincipal == "" {
		cfg.ContractPrincipal = "postoken"
	}
	return cfg
}
