package config

import (
	"os"
	"strconv"
	"time"

	"github.com/fiware/agent-trust-registry/logging"
)

var logger = logging.Log()

const (
	DatabaseInMemory = "memory"
	DatabaseMySql    = "mysql"
	DatabasePostgres = "postgres"
)

const (
	defaultServerPort   = 8080
	defaultMySqlPort    = 3306
	defaultPostgresPort = 5432
	defaultDidNetwork   = "testnet"
	defaultCacheTTL     = 10 * time.Minute
)

type DatabaseConfig struct {
	Type     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	// only used for postgres
	SslMode string
	Migrate bool
}

type DidRegistryConfig struct {
	Url       string
	ApiKey    string
	IssuerDid string
	Network   string
}

type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Config interface {
	ServerPort() int
	Database() DatabaseConfig
	DidRegistry() DidRegistryConfig
	Cache() CacheConfig
	ScoreModelFile() string
}

type EnvConfig struct{}

func (EnvConfig) ServerPort() int {
	return intEnv("SERVER_PORT", defaultServerPort)
}

func (EnvConfig) Database() DatabaseConfig {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		// keep compatibility with setups that only configure the mysql host
		if os.Getenv("MYSQL_HOST") != "" {
			dbType = DatabaseMySql
		} else {
			dbType = DatabaseInMemory
		}
	}
	migrate := boolEnv("DB_MIGRATE", false)

	switch dbType {
	case DatabaseMySql:
		return DatabaseConfig{
			Type:     DatabaseMySql,
			Host:     os.Getenv("MYSQL_HOST"),
			Port:     intEnv("MYSQL_PORT", defaultMySqlPort),
			Database: os.Getenv("MYSQL_DATABASE"),
			Username: os.Getenv("MYSQL_USERNAME"),
			Password: os.Getenv("MYSQL_PASSWORD"),
			Migrate:  migrate,
		}
	case DatabasePostgres:
		sslMode := os.Getenv("POSTGRES_SSL_MODE")
		if sslMode == "" {
			sslMode = "disable"
		}
		return DatabaseConfig{
			Type:     DatabasePostgres,
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     intEnv("POSTGRES_PORT", defaultPostgresPort),
			Database: os.Getenv("POSTGRES_DATABASE"),
			Username: os.Getenv("POSTGRES_USERNAME"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			SslMode:  sslMode,
			Migrate:  migrate,
		}
	default:
		if dbType != DatabaseInMemory {
			logger.Warnf("Unknown DB_TYPE %s configured, fall back to in-memory.", dbType)
		}
		return DatabaseConfig{Type: DatabaseInMemory}
	}
}

func (EnvConfig) DidRegistry() DidRegistryConfig {
	registryConfig := DidRegistryConfig{
		Url:       os.Getenv("DID_REGISTRY_URL"),
		ApiKey:    os.Getenv("DID_REGISTRY_API_KEY"),
		IssuerDid: os.Getenv("ISSUER_DID"),
		Network:   os.Getenv("DID_NETWORK"),
	}
	if registryConfig.Network == "" {
		registryConfig.Network = defaultDidNetwork
	}
	if registryConfig.Url != "" && registryConfig.ApiKey == "" {
		logger.Warnf("No api key configured for the did registry at %s.", registryConfig.Url)
	}
	return registryConfig
}

func (EnvConfig) Cache() CacheConfig {
	ttl := defaultCacheTTL
	if ttlEnv := os.Getenv("DID_CACHE_TTL"); ttlEnv != "" {
		parsed, err := time.ParseDuration(ttlEnv)
		if err != nil {
			logger.Warnf("Invalid DID_CACHE_TTL %s configured, use the default of %v.", ttlEnv, defaultCacheTTL)
		} else {
			ttl = parsed
		}
	}
	return CacheConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       intEnv("REDIS_DB", 0),
		TTL:      ttl,
	}
}

func (EnvConfig) ScoreModelFile() string {
	return os.Getenv("SCORE_MODEL_FILE")
}

func intEnv(name string, defaultValue int) int {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logger.Warnf("Invalid %s configured: %s. Use the default %d.", name, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func boolEnv(name string, defaultValue bool) bool {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warnf("Invalid %s configured: %s. Use the default %v.", name, value, defaultValue)
		return defaultValue
	}
	return parsed
}
