package repository

import (
	"errors"
	"fmt"

	"github.com/fiware/agent-trust-registry/config"
	"github.com/go-rel/mysql"
	"github.com/go-rel/postgres"
	"github.com/go-rel/rel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

var ErrNoDatabase = errors.New("no_database_configured")

func mySqlConnectionString(dbConfig config.DatabaseConfig) string {
	user := dbConfig.Username
	if user == "" {
		logger.Infof("No user configured for mySql, will try to connect as root.")
		user = "root"
	}
	// parseTime is required to scan DATETIME columns into time.Time, clientFoundRows makes updates report matched
	// instead of changed rows
	if dbConfig.Password == "" {
		logger.Infof("No password configured for mySql, will try to connect without credentials.")
		return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true", user, dbConfig.Host, dbConfig.Port, dbConfig.Database)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true", user, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Database)
}

func postgresConnectionString(dbConfig config.DatabaseConfig) string {
	user := dbConfig.Username
	if user == "" {
		logger.Infof("No user configured for postgres, will try to connect as postgres.")
		user = "postgres"
	}
	sslMode := dbConfig.SslMode
	if sslMode == "" {
		sslMode = "disable"
	}
	if dbConfig.Password == "" {
		return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=%s", user, dbConfig.Host, dbConfig.Port, dbConfig.Database, sslMode)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", user, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Database, sslMode)
}

// OpenDatabase connects to the configured sql database. Returns ErrNoDatabase for in-memory setups.
func OpenDatabase(dbConfig config.DatabaseConfig) (rel.Repository, error) {
	if dbConfig.Type != config.DatabaseInMemory && (dbConfig.Host == "" || dbConfig.Database == "") {
		return nil, fmt.Errorf("%s requires a host and a database to be configured", dbConfig.Type)
	}
	var adapter rel.Adapter
	var err error
	switch dbConfig.Type {
	case config.DatabaseMySql:
		adapter, err = mysql.Open(mySqlConnectionString(dbConfig))
	case config.DatabasePostgres:
		adapter, err = postgres.Open(postgresConnectionString(dbConfig))
	default:
		return nil, ErrNoDatabase
	}
	if err != nil {
		logger.Warnf("Was not able to connect to db: %s:%d/%s as user %s. Err: %v", dbConfig.Host, dbConfig.Port, dbConfig.Database, dbConfig.Username, err)
		return nil, err
	}
	logger.Infof("Connected to %s at %s:%d/%s.", dbConfig.Type, dbConfig.Host, dbConfig.Port, dbConfig.Database)
	return rel.New(adapter), nil
}
