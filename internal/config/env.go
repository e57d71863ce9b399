package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var loadEnvOnce sync.Once

// LoadEnv loads a .env file into the environment once per process, looking in
// the working directory and then its parent. Missing files are fine; real
// environment variables always win because godotenv never overwrites.
func LoadEnv() {
	loadEnvOnce.Do(func() {
		envFile := ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			parent := filepath.Join("..", ".env")
			if _, err := os.Stat(parent); err != nil {
				return
			}
			envFile = parent
		}
		_ = godotenv.Load(envFile)
	})
}
