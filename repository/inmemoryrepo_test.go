package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fiware/agent-trust-registry/model"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRepo(t *testing.T) *InMemoryRepo {
	repo := NewInMemoryRepo()
	ctx := context.Background()
	require.NoError(t, repo.CreateAgent(ctx, getAgent("agent-1", "did:1", 45)))
	require.NoError(t, repo.CreateCredentialRequest(ctx, getRequest("request-1", "agent-1", model.SafetyCredential, model.StatusPending)))
	return repo
}

func TestInMemoryAgents(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()

	assert.Equal(t, ErrConflict, repo.CreateAgent(ctx, getAgent("agent-1", "did:other", 0)), "Ids have to be unique.")
	assert.Equal(t, ErrConflict, repo.CreateAgent(ctx, getAgent("agent-2", "did:1", 0)), "Dids have to be unique.")

	second := getAgent("agent-2", "did:2", 0)
	second.CreatedAt = fixedTime.Add(time.Hour)
	require.NoError(t, repo.CreateAgent(ctx, second))

	agent, err := repo.GetAgentByDid(ctx, "did:2")
	require.NoError(t, err)
	assert.Equal(t, "agent-2", agent.Id)

	_, err = repo.GetAgent(ctx, "agent-3")
	assert.Equal(t, ErrNotFound, err)

	agents, err := repo.GetAgents(ctx, AgentQuery{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "agent-1", agents[0].Id, "Agents are listed by trust score.")

	agents, _ = repo.GetAgents(ctx, AgentQuery{}, 1, 1)
	require.Len(t, agents, 1)
	assert.Equal(t, "agent-2", agents[0].Id)

	agents, _ = repo.GetAgents(ctx, AgentQuery{}, 10, 5)
	assert.Empty(t, agents)

	count, _ := repo.CountAgents(ctx)
	assert.Equal(t, 2, count)

	require.NoError(t, repo.UpdateAgentTrustScore(ctx, "agent-1", 75, fixedTime))
	agent, _ = repo.GetAgent(ctx, "agent-1")
	assert.Equal(t, 75, agent.TrustScore)
	assert.Equal(t, ErrNotFound, repo.UpdateAgentTrustScore(ctx, "agent-3", 75, fixedTime))
}

func TestInMemoryAgentQuery(t *testing.T) {
	repo := NewInMemoryRepo()
	ctx := context.Background()
	helper := model.Agent{Id: "agent-1", Did: "did:cheqd:testnet:aaa", Name: "Helper", TrustScore: 40, UpdatedAt: fixedTime}
	writer := model.Agent{Id: "agent-2", Did: "did:cheqd:testnet:bbb", Name: "writer", TrustScore: 90, UpdatedAt: fixedTime.Add(-time.Hour)}
	analyst := model.Agent{Id: "agent-3", Did: "did:cheqd:testnet:help", Name: "Analyst", TrustScore: 40, UpdatedAt: fixedTime.Add(time.Hour)}
	for _, agent := range []model.Agent{helper, writer, analyst} {
		require.NoError(t, repo.CreateAgent(ctx, agent))
	}
	require.NoError(t, repo.CreateCredential(ctx, model.Credential{Id: "cred-1", AgentId: "agent-2", Verified: true}))
	require.NoError(t, repo.CreateCredential(ctx, model.Credential{Id: "cred-2", AgentId: "agent-3", Verified: false}))

	verified := true
	unverified := false

	type test struct {
		testName    string
		testQuery   AgentQuery
		expectedIds []string
	}

	tests := []test{
		{"Order by trust score.", AgentQuery{}, []string{"agent-2", "agent-1", "agent-3"}},
		{"Order by name.", AgentQuery{Sort: SortByName}, []string{"agent-3", "agent-1", "agent-2"}},
		{"Order by last update.", AgentQuery{Sort: SortByDate}, []string{"agent-3", "agent-1", "agent-2"}},
		{"Search name and did ignoring case.", AgentQuery{Search: "HELP"}, []string{"agent-1", "agent-3"}},
		{"Only verified agents.", AgentQuery{Verified: &verified}, []string{"agent-2"}},
		{"Unverified credentials do not count.", AgentQuery{Verified: &unverified}, []string{"agent-1", "agent-3"}},
		{"Combine search and filter.", AgentQuery{Search: "help", Verified: &verified}, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			log.Info("TestInMemoryAgentQuery +++++++++++++++++ Running test: ", tc.testName)
			agents, err := repo.GetAgents(ctx, tc.testQuery, 10, 0)
			require.NoError(t, err)
			ids := []string{}
			for _, agent := range agents {
				ids = append(ids, agent.Id)
			}
			assert.Equal(t, tc.expectedIds, ids)
		})
	}
}

func TestInMemoryListCredentials(t *testing.T) {
	repo := NewInMemoryRepo()
	ctx := context.Background()
	require.NoError(t, repo.CreateCredential(ctx, model.Credential{Id: "cred-1", AgentId: "agent-1", CreatedAt: fixedTime}))
	require.NoError(t, repo.CreateCredential(ctx, model.Credential{Id: "cred-2", AgentId: "agent-2", CreatedAt: fixedTime.Add(time.Hour)}))
	require.NoError(t, repo.CreateCredential(ctx, model.Credential{Id: "cred-3", AgentId: "agent-1", CreatedAt: fixedTime.Add(-time.Hour)}))

	credentials, err := repo.ListCredentials(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, credentials, 2)
	assert.Equal(t, "cred-2", credentials[0].Id, "Newest credentials are listed first.")
	assert.Equal(t, "cred-1", credentials[1].Id)

	credentials, _ = repo.ListCredentials(ctx, 2, 2)
	require.Len(t, credentials, 1)
	assert.Equal(t, "cred-3", credentials[0].Id)
}

func TestInMemoryStatusChange(t *testing.T) {
	type test struct {
		testName       string
		testChange     StatusChange
		expectedError  error
		expectedStatus model.RequestStatus
	}

	tests := []test{
		{"Approve pending request.", StatusChange{RequestId: "request-1", From: model.StatusPending, To: model.StatusApproved, CredentialId: "credential-1"}, nil, model.StatusApproved},
		{"Reject pending request.", StatusChange{RequestId: "request-1", From: model.StatusPending, To: model.StatusRejected, Reason: "No evidence."}, nil, model.StatusRejected},
		{"Conflict on unexpected status.", StatusChange{RequestId: "request-1", From: model.StatusApproved, To: model.StatusRejected}, ErrStatusConflict, model.StatusPending},
		{"Not found for unknown requests.", StatusChange{RequestId: "request-2", From: model.StatusPending, To: model.StatusRejected}, ErrNotFound, model.StatusPending},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			repo := seededRepo(t)
			ctx := context.Background()
			err := repo.UpdateCredentialRequestStatus(ctx, tc.testChange)
			assert.Equal(t, tc.expectedError, err)

			request, _ := repo.GetCredentialRequest(ctx, "request-1")
			assert.Equal(t, tc.expectedStatus, request.Status)
			if tc.expectedError == nil {
				assert.Equal(t, tc.testChange.Reason, request.Reason)
				assert.Equal(t, tc.testChange.CredentialId, request.CredentialId)
			}
		})
	}
}

func TestInMemoryRequestQuery(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateAgent(ctx, getAgent("agent-2", "did:2", 0)))
	require.NoError(t, repo.CreateCredentialRequest(ctx, getRequest("request-2", "agent-1", model.CreatorCredential, model.StatusRejected)))
	require.NoError(t, repo.CreateCredentialRequest(ctx, getRequest("request-3", "agent-2", model.SafetyCredential, model.StatusPending)))

	type test struct {
		testName    string
		testQuery   RequestQuery
		expectedIds []string
	}

	tests := []test{
		{"All requests.", RequestQuery{}, []string{"request-1", "request-2", "request-3"}},
		{"By agent.", RequestQuery{AgentId: "agent-1"}, []string{"request-1", "request-2"}},
		{"By status.", RequestQuery{Status: model.StatusPending}, []string{"request-1", "request-3"}},
		{"By agent, status and type.", RequestQuery{AgentId: "agent-1", Status: model.StatusPending, Type: model.SafetyCredential}, []string{"request-1"}},
		{"Nothing matches.", RequestQuery{Type: model.CapabilityCredential}, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			requests, err := repo.GetCredentialRequests(ctx, tc.testQuery, 0, 0)
			require.NoError(t, err)
			ids := []string{}
			for _, request := range requests {
				ids = append(ids, request.Id)
			}
			assert.Equal(t, tc.expectedIds, ids)
		})
	}
}

func TestInMemoryTransactionRollback(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()
	failure := errors.New("score_update_failed")

	err := repo.Transaction(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.UpdateCredentialRequestStatus(ctx, StatusChange{RequestId: "request-1", From: model.StatusPending, To: model.StatusApproved, CredentialId: "credential-1"}))
		require.NoError(t, repo.CreateCredential(ctx, model.Credential{Id: "credential-1", AgentId: "agent-1", Type: model.SafetyCredential, Verified: true}))
		require.NoError(t, repo.CreateTimelineEvent(ctx, model.TimelineEvent{Id: "event-1", AgentId: "agent-1", Kind: model.CredentialIssued}))
		return failure
	})
	assert.Equal(t, failure, err)

	request, _ := repo.GetCredentialRequest(ctx, "request-1")
	assert.Equal(t, model.StatusPending, request.Status)
	credentials, _ := repo.GetCredentials(ctx, "agent-1")
	assert.Empty(t, credentials)
	events, _ := repo.GetTimelineEvents(ctx, "agent-1")
	assert.Empty(t, events)
}

func TestInMemoryTransactionCommit(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()

	err := repo.Transaction(ctx, func(ctx context.Context) error {
		if err := repo.LockAgent(ctx, "agent-1"); err != nil {
			return err
		}
		if err := repo.CreateCredential(ctx, model.Credential{Id: "credential-1", AgentId: "agent-1", Type: model.SafetyCredential, Verified: true}); err != nil {
			return err
		}
		// nested transactions join the outer one
		return repo.Transaction(ctx, func(ctx context.Context) error {
			return repo.UpdateAgentTrustScore(ctx, "agent-1", 75, fixedTime)
		})
	})
	require.NoError(t, err)

	agent, _ := repo.GetAgent(ctx, "agent-1")
	assert.Equal(t, 75, agent.TrustScore)
	count, _ := repo.CountCredentials(ctx)
	assert.Equal(t, 1, count)
}

func TestInMemoryTransactionsAreSerialized(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Transaction(ctx, func(ctx context.Context) error {
				return repo.UpdateCredentialRequestStatus(ctx, StatusChange{RequestId: "request-1", From: model.StatusPending, To: model.StatusApproved})
			})
		}()
	}
	wg.Wait()
	close(results)

	succeeded, conflicted := 0, 0
	for err := range results {
		switch err {
		case nil:
			succeeded++
		case ErrStatusConflict:
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
}

func TestInMemoryTimelineOrder(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()
	for _, id := range []string{"event-1", "event-2", "event-3"} {
		require.NoError(t, repo.CreateTimelineEvent(ctx, model.TimelineEvent{Id: id, AgentId: "agent-1"}))
	}
	require.NoError(t, repo.CreateTimelineEvent(ctx, model.TimelineEvent{Id: "event-4", AgentId: "agent-2"}))

	events, err := repo.GetTimelineEvents(ctx, "agent-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "event-3", events[0].Id)
	assert.Equal(t, "event-1", events[2].Id)
}
