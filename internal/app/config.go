package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/dynamoledger"
	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	LedgerBackend  string
	DSN            string
	DynamoTable    string
	AWSRegion      string
	DynamoEndpoint string
	RedisURL       string

	AuthEnabled      bool
	AuthIssuer       string
	AuthAudience     string
	AuthJWKSURL      string
	AuthOperatorRole string

	Guarded           bool
	RaceRetries       int
	MinPrefixLength   int
	LedgerCallTimeout time.Duration
	LedgerCallRetries uint64
	// LedgerCallBackoff is the pause before retrying a timed-out ledger call.
	LedgerCallBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		Port:              "4040",
		ReadTimeout:       3 * time.Second,
		WriteTimeout:      30 * time.Second,
		LedgerBackend:     BackendPostgres,
		DynamoTable:       dynamoledger.DefaultTable,
		AWSRegion:         "us-east-1",
		Guarded:           true,
		RaceRetries:       domain.DefaultRaceRetries,
		MinPrefixLength:   domain.DefaultMinPrefixLength,
		LedgerCallTimeout: 5 * time.Second,
		LedgerCallRetries: 2,
		LedgerCallBackoff: 200 * time.Millisecond,
	}
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when there is one, and validates the result.
func LoadConfig() (Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadEnv is LoadConfig without validation, for callers that still apply
// their own overrides.
func LoadEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PORT", &cfg.Port)
	str("LEDGER_BACKEND", &cfg.LedgerBackend)
	str("DB_CONN", &cfg.DSN)
	str("DYNAMODB_TABLE", &cfg.DynamoTable)
	str("AWS_REGION", &cfg.AWSRegion)
	str("DYNAMODB_ENDPOINT", &cfg.DynamoEndpoint)
	str("REDIS_URL", &cfg.RedisURL)
	boolean("AUTH_ENABLED", &cfg.AuthEnabled)
	str("AUTH_ISSUER", &cfg.AuthIssuer)
	str("AUTH_AUDIENCE", &cfg.AuthAudience)
	str("AUTH_JWKS_URL", &cfg.AuthJWKSURL)
	str("AUTH_OPERATOR_ROLE", &cfg.AuthOperatorRole)
	boolean("ALLOCATOR_GUARDED", &cfg.Guarded)
	integer("ALLOCATION_RACE_RETRIES", &cfg.RaceRetries)
	integer("MIN_PREFIX_LENGTH", &cfg.MinPrefixLength)
	duration("LEDGER_CALL_TIMEOUT", &cfg.LedgerCallTimeout)
	duration("LEDGER_CALL_BACKOFF", &cfg.LedgerCallBackoff)

	retries := int(cfg.LedgerCallRetries)
	integer("LEDGER_CALL_RETRIES", &retries)
	if retries < 0 {
		errs = append(errs, fmt.Errorf("LEDGER_CALL_RETRIES: must not be negative"))
	} else {
		cfg.LedgerCallRetries = uint64(retries)
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.LedgerBackend {
	case BackendPostgres, "":
		if c.DSN == "" {
			return fmt.Errorf("missing required environment variable: DB_CONN")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("missing required environment variable: REDIS_URL")
		}
	case BackendDynamoDB:
		if c.AWSRegion == "" {
			return fmt.Errorf("missing required environment variable: AWS_REGION")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown ledger backend %q", c.LedgerBackend)
	}

	if c.MinPrefixLength < 1 || c.MinPrefixLength > domain.MinRequestPrefixLength {
		return fmt.Errorf("MIN_PREFIX_LENGTH must be between /1 and /%d, got /%d", domain.MinRequestPrefixLength, c.MinPrefixLength)
	}
	if c.RaceRetries < 0 {
		return fmt.Errorf("ALLOCATION_RACE_RETRIES must not be negative")
	}
	if c.LedgerCallBackoff < 0 {
		return fmt.Errorf("LEDGER_CALL_BACKOFF must not be negative")
	}
	if c.AuthEnabled && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_ENABLED is set but AUTH_ISSUER is empty")
	}
	return nil
}
