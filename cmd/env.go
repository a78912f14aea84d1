package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// configDir returns ~/.config/studyhall.
func configDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "studyhall")
}

// loadEnvFiles loads ./.env, then ~/.config/studyhall/.env. Variables already
// set in the environment win; missing files are skipped.
func loadEnvFiles() {
	candidates := []string{".env"}
	if dir := configDir(); dir != "" {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}
