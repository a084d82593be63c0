package repository

import (
	"testing"

	"github.com/fiware/agent-trust-registry/config"
	log "github.com/sirupsen/logrus"
)

func TestConnectionStrings(t *testing.T) {
	type test struct {
		testName         string
		testConfig       config.DatabaseConfig
		expectedMySql    string
		expectedPostgres string
	}

	tests := []test{
		{"Connect with credentials.", config.DatabaseConfig{Host: "db", Port: 1234, Database: "registry", Username: "user", Password: "secret", SslMode: "require"},
			"user:secret@tcp(db:1234)/registry?parseTime=true&clientFoundRows=true", "postgres://user:secret@db:1234/registry?sslmode=require"},
		{"Connect with default users and without password.", config.DatabaseConfig{Host: "db", Port: 1234, Database: "registry"},
			"root@tcp(db:1234)/registry?parseTime=true&clientFoundRows=true", "postgres://postgres@db:1234/registry?sslmode=disable"},
	}

	for _, tc := range tests {
		log.Info("TestConnectionStrings +++++++++++++++++ Running test: ", tc.testName)
		if connection := mySqlConnectionString(tc.testConfig); connection != tc.expectedMySql {
			t.Errorf("%s: Unexpected mysql connection. Expected: %s, Actual: %s", tc.testName, tc.expectedMySql, connection)
		}
		if connection := postgresConnectionString(tc.testConfig); connection != tc.expectedPostgres {
			t.Errorf("%s: Unexpected postgres connection. Expected: %s, Actual: %s", tc.testName, tc.expectedPostgres, connection)
		}
	}
}

func TestOpenDatabaseWithoutSql(t *testing.T) {
	_, err := OpenDatabase(config.DatabaseConfig{Type: config.DatabaseInMemory})
	if err != ErrNoDatabase {
		t.Errorf("In-memory setups should not open a database. Err: %v", err)
	}
	_, err = OpenDatabase(config.DatabaseConfig{Type: config.DatabaseMySql})
	if err == nil {
		t.Errorf("Mysql without host should not be opened.")
	}
}
