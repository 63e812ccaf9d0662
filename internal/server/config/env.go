package config

import (
	"errors"
	"io/fs"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// dotEnvFile is loaded into the process environment when it exists.
// Variables already set in the environment win over the file.
var dotEnvFile = ".env"

// parseEnv overlays fields whose `env` variable is set. Unset variables
// leave the current value alone.
func parseEnv(config *Config) error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return cleanenv.ReadEnv(config)
}
