package cmd

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix of the environment variables used as flag defaults
const EnvPrefix = "COVERSTORE_"

// LoadEnv loads the .env files (missing files are ignored). The variables already set are not overridden.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// Getenv returns the value of COVERSTORE_<key>, or def if it is not set
func Getenv(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

// GetenvInt is Getenv for integers. An invalid value returns def.
func GetenvInt(key string, def int) int {
	v, err := strconv.Atoi(Getenv(key, ""))
	if err != nil {
		return def
	}
	return v
}

// GetenvBool is Getenv for booleans. An invalid value returns def.
func GetenvBool(key string, def bool) bool {
	switch strings.ToLower(Getenv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
