package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Userdata    UserdataConfig
	Cron        CronConfig
	Deletion    []DeletionConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL     string
	TestURL string
}

type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// UserdataConfig describes the identity provider used to resolve user
// display names.
type UserdataConfig struct {
	TokenURL           string
	UserinfoURL        string
	ClientID           string
	ClientSecret       string
	AcceptInvalidCerts bool
	RefreshInterval    time.Duration
	RequestTimeout     time.Duration
}

type CronConfig struct {
	Interval time.Duration
}

// DeletionConfig enables staged deletion for one collection. Stage one is
// the recovery window for removers, stage two the additional window for
// admins.
type DeletionConfig struct {
	Collection string
	Stage1Days int
	Stage2Days int
}

var deletionTuplePattern = regexp.MustCompile(`^\(([a-z][-a-z0-9]*),(\d+),(\d+)\)$`)

// Load configuration from environment variables
func Load() (*Config, error) {
	// Load .env file in non-production environments
	env := os.Getenv("ENVIRONMENT")
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			// .env file is optional
		}
	}

	deletion, err := parseDeletionTuples(getEnv("FOLIVAFY_ENABLE_DELETION", ""))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:           getEnv("HOST", "localhost"),
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		Database: DatabaseConfig{
			URL:     getEnv("FOLIVAFY_DATABASE", getEnv("DATABASE_URL", "")),
			TestURL: getEnv("DATABASE_URL_TEST", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			Issuer: getEnv("FOLIVAFY_JWT_ISSUER", ""),
		},
		Userdata: UserdataConfig{
			TokenURL:           getEnv("USERDATA_TOKEN_URL", ""),
			UserinfoURL:        getEnv("USERDATA_USERINFO_URL", ""),
			ClientID:           getEnv("USERDATA_CLIENT_ID", ""),
			ClientSecret:       getEnv("USERDATA_CLIENT_SECRET", ""),
			AcceptInvalidCerts: parseBool(getEnv("IPASERVICE_DANGEROUS_ACCEPT_INVALID_CERTS", "false")),
			RefreshInterval:    parseDuration(getEnv("USERDATA_REFRESH_INTERVAL", "165s")),
			RequestTimeout:     parseDuration(getEnv("USERDATA_REQUEST_TIMEOUT", "4s")),
		},
		Cron: CronConfig{
			Interval: parseDuration(getEnv("FOLIVAFY_CRON_INTERVAL", "60s")),
		},
		Deletion: deletion,
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// GetDatabaseURL returns the appropriate database URL based on environment
func (c *Config) GetDatabaseURL() string {
	if c.Environment == "test" && c.Database.TestURL != "" {
		return c.Database.TestURL
	}
	return c.Database.URL
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsTest returns true if running in test environment
func (c *Config) IsTest() bool {
	return c.Environment == "test"
}

func validate(config *Config) error {
	if config.IsProduction() && config.GetDatabaseURL() == "" {
		return fmt.Errorf("FOLIVAFY_DATABASE is required in production")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// parseDeletionTuples parses FOLIVAFY_ENABLE_DELETION, a comma-separated
// list of (collection,stage1days,stage2days) tuples, e.g.
// "(letters,30,60),(invoices,7,83)".
func parseDeletionTuples(value string) ([]DeletionConfig, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	var out []DeletionConfig
	for _, tuple := range splitTuples(value) {
		m := deletionTuplePattern.FindStringSubmatch(strings.TrimSpace(tuple))
		if m == nil {
			return nil, fmt.Errorf("invalid FOLIVAFY_ENABLE_DELETION tuple: %q", tuple)
		}
		stage1, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid stage one days in %q: %w", tuple, err)
		}
		stage2, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("invalid stage two days in %q: %w", tuple, err)
		}
		out = append(out, DeletionConfig{
			Collection: m[1],
			Stage1Days: stage1,
			Stage2Days: stage2,
		})
	}
	return out, nil
}

// splitTuples splits "(a,1,2),(b,3,4)" at the commas between tuples.
func splitTuples(value string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range value {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, value[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, value[start:])
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(value string) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return false
}

func parseDuration(value string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return 0
}
