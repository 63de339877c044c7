package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotenv loads KEY=VALUE pairs from the file named by DOTENV (default ".env").
// Variables already present in the process environment win. A missing file is
// not an error; the loaded path is returned for logging ("" when nothing loaded).
func LoadDotenv() (string, error) {
	path := strings.TrimSpace(os.Getenv("DOTENV"))
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	if err := godotenv.Load(path); err != nil {
		return "", err
	}
	return path, nil
}
