package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envFileFlag   = "--env-file"
	envFileEnvVar = "ENV_FILE"
)

// LoadEnvFile loads environment variables from the file named by --env-file, then ENV_FILE, falling back to an
// optional .env in the working directory. Variables already set in the environment are never overwritten.
func LoadEnvFile() error {
	return loadEnvFile(os.Args, os.Getenv(envFileEnvVar))
}

func loadEnvFile(args []string, envVarValue string) error {
	path := envFilePath(args, envVarValue)
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading .env file: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func envFilePath(args []string, envVarValue string) string {
	path := envFileFromArgs(args)
	if path == "" {
		path = envVarValue
	}
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	if absPath, err := filepath.Abs(path); err == nil {
		return absPath
	}
	return path
}

func envFileFromArgs(args []string) string {
	for i, arg := range args {
		if arg == envFileFlag && i+1 < len(args) {
			return args[i+1]
		}
		if value, ok := strings.CutPrefix(arg, envFileFlag+"="); ok {
			return value
		}
	}
	return ""
}
