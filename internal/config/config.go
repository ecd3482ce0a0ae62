// Package config loads the static service configuration from the process
// environment. Connection parameters are immutable after load and passed to
// the components that need them by constructor injection.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultDBName  = "postgres"
	defaultUser    = "postgres"
	defaultSSLMode = "prefer"

	defaultListenPort = 8000

	defaultMaxResults     = 1000
	defaultQueryTimeout   = 240 * time.Second
	defaultSchemaCacheTTL = 300 * time.Second
)

// RequiredVars are the environment variables that must be present at startup.
// Startup fails with a listing of the missing names if any are absent.
var RequiredVars = []string{"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD"}

// Database holds the Postgres connection parameters.
type Database struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// Config is the full service configuration.
type Config struct {
	DB Database

	// ListenPort is the streamable HTTP listen port (PORT, default 8000).
	ListenPort int

	// The following keys are published configuration of the service but are
	// not consumed by any code path. They are parsed so that setting them is
	// not an error, and nothing more.
	MaxResults        int
	QueryTimeout      time.Duration
	SchemaCacheTTL    time.Duration
	AutoRefreshSchema bool
}

// Load reads the configuration from the environment. It returns a
// MissingVarsError listing every absent required variable, so the caller can
// report all of them at once.
func Load() (Config, error) {
	var missing []string
	for _, name := range RequiredVars {
		if v, ok := os.LookupEnv(name); !ok || v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Config{}, &MissingVarsError{Names: missing}
	}

	port, err := getenvInt("DB_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	listenPort, err := getenvInt("PORT", defaultListenPort)
	if err != nil {
		return Config{}, err
	}
	maxResults, err := getenvInt("MAX_RESULTS", defaultMaxResults)
	if err != nil {
		return Config{}, err
	}
	queryTimeout, err := getenvSeconds("QUERY_TIMEOUT", defaultQueryTimeout)
	if err != nil {
		return Config{}, err
	}
	schemaCacheTTL, err := getenvSeconds("SCHEMA_CACHE_TTL", defaultSchemaCacheTTL)
	if err != nil {
		return Config{}, err
	}

	return Config{
		DB: Database{
			Host:     getenv("DB_HOST", defaultHost),
			Port:     port,
			Name:     getenv("DB_NAME", defaultDBName),
			User:     getenv("DB_USER", defaultUser),
			Password: os.Getenv("DB_PASSWORD"),
			SSLMode:  getenv("DB_SSLMODE", defaultSSLMode),
		},
		ListenPort:        listenPort,
		MaxResults:        maxResults,
		QueryTimeout:      queryTimeout,
		SchemaCacheTTL:    schemaCacheTTL,
		AutoRefreshSchema: getenvBool("AUTO_REFRESH_SCHEMA", true),
	}, nil
}

// MissingVarsError reports required environment variables that are unset.
type MissingVarsError struct {
	Names []string
}

func (e *MissingVarsError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Names, ", "))
}

// DSN builds the libpq-style connection string for pgx.
func (d Database) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}
	port := d.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, port, d.User, d.Password, d.Name, sslMode,
	)
}

// Redacted returns a log-safe rendering of the connection target.
func (d Database) Redacted() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return i, nil
}

func getenvSeconds(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return time.Duration(i) * time.Second, nil
}
