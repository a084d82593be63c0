package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fiware/agent-trust-registry/logging"
	"github.com/fiware/agent-trust-registry/model"
)

var logger = logging.Log()

var (
	ErrNotFound = errors.New("not_found")
	// a conditional status update did not match, the request is no longer in the expected state
	ErrStatusConflict = errors.New("status_conflict")
	ErrConflict       = errors.New("already_exists")
)

type AgentSort string

const (
	SortByTrustScore AgentSort = "trustScore"
	SortByName       AgentSort = "name"
	// latest update first
	SortByDate AgentSort = "date"
)

// AgentQuery filters and orders the agent list. Agents are ordered by trust score if no sort is given.
type AgentQuery struct {
	// case-insensitive part of the name or the did
	Search string
	// only agents with at least one verified credential, or with none if false
	Verified *bool
	Sort     AgentSort
}

// RequestQuery filters credential requests. Empty fields do not restrict the result.
type RequestQuery struct {
	AgentId string
	Status  model.RequestStatus
	Type    model.CredentialType
}

// StatusChange moves a request from one status to another, but only if it still is in status From.
type StatusChange struct {
	RequestId    string
	From         model.RequestStatus
	To           model.RequestStatus
	Reason       string
	CredentialId string
	ChangedAt    time.Time
}

/**
* Storage of agents, credential requests, credentials and the agents timeline. All operations called with the
* context handed to the function given to Transaction take part in the same unit of work.
 */
type Repository interface {
	CreateAgent(ctx context.Context, agent model.Agent) error
	GetAgent(ctx context.Context, id string) (model.Agent, error)
	GetAgentByDid(ctx context.Context, did string) (model.Agent, error)
	GetAgents(ctx context.Context, query AgentQuery, limit int, offset int) ([]model.Agent, error)
	CountAgents(ctx context.Context) (int, error)
	// locks the agent until the surrounding transaction ends
	LockAgent(ctx context.Context, id string) error
	UpdateAgentTrustScore(ctx context.Context, agentId string, trustScore int, updatedAt time.Time) error

	CreateCredentialRequest(ctx context.Context, request model.CredentialRequest) error
	GetCredentialRequest(ctx context.Context, id string) (model.CredentialRequest, error)
	GetCredentialRequests(ctx context.Context, query RequestQuery, limit int, offset int) ([]model.CredentialRequest, error)
	UpdateCredentialRequestStatus(ctx context.Context, change StatusChange) error

	CreateCredential(ctx context.Context, credential model.Credential) error
	GetCredentials(ctx context.Context, agentId string) ([]model.Credential, error)
	// all credentials of the registry, newest first
	ListCredentials(ctx context.Context, limit int, offset int) ([]model.Credential, error)
	CountCredentials(ctx context.Context) (int, error)

	CreateTimelineEvent(ctx context.Context, event model.TimelineEvent) error
	GetTimelineEvents(ctx context.Context, agentId string) ([]model.TimelineEvent, error)

	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	Ping(ctx context.Context) error
}
