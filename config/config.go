package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Required keys have no safe default. Startup aborts when any of them is
// missing so the service never runs against an unconfigured store or with an
// empty signing secret.
var required = []string{
	"POSTGRES_HOST",
	"POSTGRES_PORT",
	"POSTGRES_USER",
	"POSTGRES_PASSWORD",
	"POSTGRES_DB",
	"REDIS_HOST",
	"REDIS_PORT",
	"REDIS_DB",
	"RABBITMQ_HOST",
	"RABBITMQ_PORT",
	"RABBITMQ_USER",
	"RABBITMQ_PASSWORD",
	"JWT_ACCESS_KEY",
	"JWT_REFRESH_KEY",
}

// Config returns the value of an environment variable.
func Config(key string) string {
	return os.Getenv(key)
}

// MustLoad reads .env (when present) into the process environment and
// verifies every required key is set. Optional keys (SERVER_PORT, BASE_URL,
// CORS_ORIGIN, JWT_*_EXPIRE, EVENT_MODE) may stay empty.
func MustLoad() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("no .env file, using process environment")
	}

	missing := []string{}
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("missing required configuration: %s", strings.Join(missing, ", "))
	}
}
