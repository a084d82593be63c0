package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fiware/agent-trust-registry/model"
	"github.com/fiware/agent-trust-registry/repository"
	"github.com/fiware/agent-trust-registry/score"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	router, _ := newTestRouterWithRepo(t)
	return router
}

func newTestRouterWithRepo(t *testing.T) (*gin.Engine, *repository.InMemoryRepo) {
	gin.SetMode(gin.TestMode)
	repo := repository.NewInMemoryRepo()
	require.NoError(t, repo.CreateAgent(context.Background(), model.Agent{Id: "agent-1", Did: "did:cheqd:testnet:1", Name: "Helper", TrustScore: 92, CreatedAt: fixedTime}))
	service := newTestService(repo, nil, mockResolver{})
	router := gin.New()
	NewAgentController(service).RegisterRoutes(router)
	NewVerificationController(service).RegisterRoutes(router)
	return router, repo
}

func doRequest(router *gin.Engine, method string, path string, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestRegistryEndpoints(t *testing.T) {
	type test struct {
		testName       string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedType   string
	}

	tests := []test{
		{"Register an agent.", http.MethodPost, "/agents", `{"name":"Writer","did":"did:cheqd:testnet:2"}`, http.StatusCreated, ""},
		{"Register an agent twice.", http.MethodPost, "/agents", `{"name":"Writer","did":"did:cheqd:testnet:1"}`, http.StatusBadRequest, "ValidationError"},
		{"Register an agent with broken body.", http.MethodPost, "/agents", `{"name"`, http.StatusBadRequest, "BadRequest"},
		{"List agents.", http.MethodGet, "/agents?limit=10&offset=0", "", http.StatusOK, ""},
		{"List agents with invalid offset.", http.MethodGet, "/agents?offset=abc", "", http.StatusBadRequest, "InvalidParameter"},
		{"List agents with a zero limit.", http.MethodGet, "/agents?limit=0", "", http.StatusBadRequest, "InvalidParameter"},
		{"Search verified agents by name.", http.MethodGet, "/agents?search=help&verified=true&sort=name", "", http.StatusOK, ""},
		{"List agents with invalid verified filter.", http.MethodGet, "/agents?verified=maybe", "", http.StatusBadRequest, "InvalidParameter"},
		{"List agents with unknown sort.", http.MethodGet, "/agents?sort=age", "", http.StatusBadRequest, "InvalidParameter"},
		{"List all credentials.", http.MethodGet, "/credentials?limit=10", "", http.StatusOK, ""},
		{"List credentials with invalid limit.", http.MethodGet, "/credentials?limit=-1", "", http.StatusBadRequest, "InvalidParameter"},
		{"Get an agent.", http.MethodGet, "/agents/agent-1", "", http.StatusOK, ""},
		{"Get an unknown agent.", http.MethodGet, "/agents/unknown", "", http.StatusNotFound, "NotFound"},
		{"Get the credentials.", http.MethodGet, "/agents/agent-1/credentials", "", http.StatusOK, ""},
		{"Get the timeline of an unknown agent.", http.MethodGet, "/agents/unknown/timeline", "", http.StatusNotFound, "NotFound"},
		{"Get the stats.", http.MethodGet, "/stats", "", http.StatusOK, ""},
		{"Verify an agent.", http.MethodGet, "/verify/did:cheqd:testnet:1", "", http.StatusOK, ""},
		{"Verify an unknown agent.", http.MethodGet, "/verify/did:cheqd:testnet:9", "", http.StatusNotFound, "NotFound"},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			log.Info("TestRegistryEndpoints +++++++++++++++++ Running test: ", tc.testName)
			recorder := doRequest(newTestRouter(t), tc.method, tc.path, tc.body)
			assert.Equal(t, tc.expectedStatus, recorder.Code, recorder.Body.String())
			if tc.expectedType != "" {
				var problem model.ProblemDetails
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &problem))
				assert.Equal(t, tc.expectedType, problem.Type)
			}
		})
	}
}

func TestVerifyEndpoint(t *testing.T) {
	recorder := doRequest(newTestRouter(t), http.MethodGet, "/verify/did:cheqd:testnet:1", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var verification Verification
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &verification))
	assert.Equal(t, "agent-1", verification.Agent.Id)
	assert.Equal(t, score.Excellent, verification.Rating)
	assert.Len(t, verification.Coverage, 3)
	assert.True(t, verification.Resolved)
}

func TestListAgentsEndpoint(t *testing.T) {
	type test struct {
		testName    string
		query       string
		expectedIds []string
	}

	tests := []test{
		{"List all agents.", "", []string{"agent-1", "agent-2"}},
		{"Order by name.", "?sort=name", []string{"agent-2", "agent-1"}},
		{"Search by did.", "?search=TESTNET:2", []string{"agent-2"}},
		{"Only unverified agents.", "?verified=false", []string{"agent-2"}},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			log.Info("TestListAgentsEndpoint +++++++++++++++++ Running test: ", tc.testName)
			router, repo := newTestRouterWithRepo(t)
			require.NoError(t, repo.CreateAgent(context.Background(), model.Agent{Id: "agent-2", Did: "did:cheqd:testnet:2", Name: "Analyst", TrustScore: 10, CreatedAt: fixedTime}))
			require.NoError(t, repo.CreateCredential(context.Background(), model.Credential{Id: "cred-1", AgentId: "agent-1", Type: model.SafetyCredential, Verified: true, CreatedAt: fixedTime}))

			recorder := doRequest(router, http.MethodGet, "/agents"+tc.query, "")
			require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
			var agents []model.Agent
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &agents))
			ids := []string{}
			for _, agent := range agents {
				ids = append(ids, agent.Id)
			}
			assert.Equal(t, tc.expectedIds, ids)
		})
	}
}

func TestListCredentialsEndpoint(t *testing.T) {
	router, repo := newTestRouterWithRepo(t)
	require.NoError(t, repo.CreateCredential(context.Background(), model.Credential{Id: "cred-1", AgentId: "agent-1", Type: model.SafetyCredential, Verified: true, CreatedAt: fixedTime}))

	recorder := doRequest(router, http.MethodGet, "/credentials", "")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var credentials []IssuedCredential
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &credentials))
	if assert.Len(t, credentials, 1) {
		assert.Equal(t, "cred-1", credentials[0].Id)
		assert.Equal(t, "Helper", credentials[0].AgentName)
		assert.Equal(t, "did:cheqd:testnet:1", credentials[0].AgentDid)
	}
}

func TestCalculateTrustScore(t *testing.T) {
	type test struct {
		testName      string
		body          string
		expectedScore int
	}

	tests := []test{
		{"Calculate with the configured model.", "", 22},
		{"Calculate with verified credentials.", `{"credentials":[{"type":"Creator","verified":true,"weight":30},{"type":"Safety","verified":true,"weight":40},{"type":"Capability","verified":true,"weight":30}]}`, 92},
		{"Calculate with own factors.", `{"credentials":[{"type":"Safety","verified":true,"weight":40}],"factors":[{"name":"Credential Verification","score":0,"weight":100}]}`, 40},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			log.Info("TestCalculateTrustScore +++++++++++++++++ Running test: ", tc.testName)
			recorder := doRequest(newTestRouter(t), http.MethodPost, "/trustscore", tc.body)
			require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

			var result score.Result
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
			assert.Equal(t, tc.expectedScore, result.Score)
		})
	}
}
