package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the server's runtime configuration.  Each field corresponds
// to an environment variable.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	LogLevel     string // logrus level name
	DBUser       string
	DBPass       string // may be empty
	DBHost       string
	DBPort       string
	DBName       string
	JWTSecret    string // secret used to sign staff access tokens
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int
	// EventLogDir receives announcements.log when EventLog is on.
	EventLogDir  string
	EventLog     bool
}

// LoadDotEnv reads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("config: could not read .env: %v", err)
	}
}

// Load reads the server configuration.  Required variables are enforced
// by must() and a missing value terminates the process.
func Load() Config {
	LoadDotEnv()
	return Config{
		Env:          envStr("APP_ENV", "dev"),
		Port:         must("APP_PORT"),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   envInt("BCRYPT_COST", 12),
		EventLogDir:  envStr("EVENT_LOG_DIR", "logs"),
		EventLog:     envBool("EVENT_LOG_ENABLED", true),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
