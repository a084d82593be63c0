package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fiware/agent-trust-registry/model"
	"github.com/fiware/agent-trust-registry/score"
	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
)

func TestDatabase(t *testing.T) {
	type test struct {
		testName       string
		testEnv        map[string]string
		expectedConfig DatabaseConfig
	}

	tests := []test{
		{"Default to in-memory.", map[string]string{}, DatabaseConfig{Type: DatabaseInMemory}},
		{"Unknown types fall back to in-memory.", map[string]string{"DB_TYPE": "oracle"}, DatabaseConfig{Type: DatabaseInMemory}},
		{"Mysql host alone selects mysql.", map[string]string{"MYSQL_HOST": "mysql", "MYSQL_DATABASE": "registry"},
			DatabaseConfig{Type: DatabaseMySql, Host: "mysql", Port: 3306, Database: "registry"}},
		{"Explicit mysql with port and migrations.", map[string]string{"DB_TYPE": "mysql", "MYSQL_HOST": "mysql", "MYSQL_PORT": "3307", "MYSQL_DATABASE": "registry", "MYSQL_USERNAME": "user", "MYSQL_PASSWORD": "pass", "DB_MIGRATE": "true"},
			DatabaseConfig{Type: DatabaseMySql, Host: "mysql", Port: 3307, Database: "registry", Username: "user", Password: "pass", Migrate: true}},
		{"Postgres with defaults.", map[string]string{"DB_TYPE": "postgres", "POSTGRES_HOST": "pg", "POSTGRES_DATABASE": "registry"},
			DatabaseConfig{Type: DatabasePostgres, Host: "pg", Port: 5432, Database: "registry", SslMode: "disable"}},
		{"Invalid port falls back to default.", map[string]string{"DB_TYPE": "postgres", "POSTGRES_HOST": "pg", "POSTGRES_PORT": "port", "POSTGRES_SSL_MODE": "require"},
			DatabaseConfig{Type: DatabasePostgres, Host: "pg", Port: 5432, SslMode: "require"}},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			log.Info("TestDatabase +++++++++++++++++ Running test: ", tc.testName)
			for _, name := range []string{"DB_TYPE", "DB_MIGRATE", "MYSQL_HOST", "MYSQL_PORT", "MYSQL_DATABASE", "MYSQL_USERNAME", "MYSQL_PASSWORD", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DATABASE", "POSTGRES_USERNAME", "POSTGRES_PASSWORD", "POSTGRES_SSL_MODE"} {
				t.Setenv(name, "")
			}
			for name, value := range tc.testEnv {
				t.Setenv(name, value)
			}
			databaseConfig := EnvConfig{}.Database()
			if diff := cmp.Diff(tc.expectedConfig, databaseConfig); diff != "" {
				t.Errorf("%s: Unexpected database config. Diff: %s", tc.testName, diff)
			}
		})
	}
}

func TestCache(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DID_CACHE_TTL", "30s")
	cacheConfig := EnvConfig{}.Cache()
	if cacheConfig.Addr != "redis:6379" || cacheConfig.TTL != 30*time.Second {
		t.Errorf("Unexpected cache config: %v", cacheConfig)
	}

	t.Setenv("DID_CACHE_TTL", "soon")
	if ttl := (EnvConfig{}).Cache().TTL; ttl != defaultCacheTTL {
		t.Errorf("Invalid ttl should fall back to the default. Actual: %v", ttl)
	}
}

func TestDidRegistry(t *testing.T) {
	t.Setenv("DID_REGISTRY_URL", "https://studio-api.cheqd.net")
	t.Setenv("DID_REGISTRY_API_KEY", "key")
	t.Setenv("ISSUER_DID", "did:cheqd:testnet:issuer")
	t.Setenv("DID_NETWORK", "")

	expected := DidRegistryConfig{Url: "https://studio-api.cheqd.net", ApiKey: "key", IssuerDid: "did:cheqd:testnet:issuer", Network: "testnet"}
	if diff := cmp.Diff(expected, EnvConfig{}.DidRegistry()); diff != "" {
		t.Errorf("Unexpected registry config. Diff: %s", diff)
	}
}

func TestLoadScoreModel(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	os.WriteFile(valid, []byte(`
credentials:
  - type: Creator
    weight: 50
  - type: Safety
    weight: 50
factors:
  - name: Credential Verification
    weight: 80
  - name: Transparency
    score: 90
    weight: 20
`), 0644)

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("factors: []\n"), 0644)

	broken := filepath.Join(dir, "broken.yaml")
	os.WriteFile(broken, []byte("credentials: [\n"), 0644)

	type test struct {
		testName      string
		testPath      string
		expectedModel score.Model
		expectError   bool
	}

	tests := []test{
		{"Without file the default is used.", "", score.DefaultModel(), false},
		{"Load weights from file.", valid, score.Model{
			Credentials: []score.CredentialFact{{Type: model.CreatorCredential, Weight: 50}, {Type: model.SafetyCredential, Weight: 50}},
			Factors:     []score.Factor{{Name: score.CredentialVerificationFactor, Weight: 80}, {Name: "Transparency", Score: 90, Weight: 20}},
		}, false},
		{"Fail on missing file.", filepath.Join(dir, "missing.yaml"), score.Model{}, true},
		{"Fail on models without credentials.", empty, score.Model{}, true},
		{"Fail on invalid yaml.", broken, score.Model{}, true},
	}

	for _, tc := range tests {
		log.Info("TestLoadScoreModel +++++++++++++++++ Running test: ", tc.testName)
		scoreModel, err := LoadScoreModel(tc.testPath)
		if tc.expectError != (err != nil) {
			t.Errorf("%s: Unexpected error state. Expected error: %v, Actual: %v", tc.testName, tc.expectError, err)
		}
		if diff := cmp.Diff(tc.expectedModel, scoreModel); diff != "" {
			t.Errorf("%s: Unexpected model. Diff: %s", tc.testName, diff)
		}
	}
}
