package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fiware/agent-trust-registry/logging"
	"github.com/fiware/agent-trust-registry/model"
)

type transactionKey struct{}

type memoryState struct {
	agents      map[string]model.Agent
	requests    map[string]model.CredentialRequest
	credentials map[string]model.Credential
	events      []model.TimelineEvent
}

func (s *memoryState) copy() *memoryState {
	c := &memoryState{
		agents:      make(map[string]model.Agent, len(s.agents)),
		requests:    make(map[string]model.CredentialRequest, len(s.requests)),
		credentials: make(map[string]model.Credential, len(s.credentials)),
		events:      make([]model.TimelineEvent, len(s.events)),
	}
	for k, v := range s.agents {
		c.agents[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.credentials {
		c.credentials[k] = v
	}
	copy(c.events, s.events)
	return c
}

/**
* Quick in-memory implementation of the repository. Should only be used for dev and testing, does not have any persistence.
* Transactions are serialized by a single lock and rolled back by restoring a snapshot of the state.
 */
type InMemoryRepo struct {
	mutex sync.Mutex
	state *memoryState
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{state: &memoryState{
		agents:      map[string]model.Agent{},
		requests:    map[string]model.CredentialRequest{},
		credentials: map[string]model.Credential{},
		events:      []model.TimelineEvent{},
	}}
}

func (r *InMemoryRepo) inTransaction(ctx context.Context) bool {
	return ctx.Value(transactionKey{}) == r
}

// lock returns the unlock func. Inside a transaction the lock is already held.
func (r *InMemoryRepo) lock(ctx context.Context) func() {
	if r.inTransaction(ctx) {
		return func() {}
	}
	r.mutex.Lock()
	return r.mutex.Unlock
}

func (r *InMemoryRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if r.inTransaction(ctx) {
		return fn(ctx)
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	snapshot := r.state.copy()
	defer func() {
		if p := recover(); p != nil {
			r.state = snapshot
			panic(p)
		}
	}()
	err = fn(context.WithValue(ctx, transactionKey{}, r))
	if err != nil {
		logger.Debugf("Rollback in-memory transaction. Err: %v", err)
		r.state = snapshot
	}
	return err
}

func (r *InMemoryRepo) Ping(ctx context.Context) error {
	return nil
}

func (r *InMemoryRepo) CreateAgent(ctx context.Context, agent model.Agent) error {
	defer r.lock(ctx)()
	if _, ok := r.state.agents[agent.Id]; ok {
		logger.Warnf("Agent %s already exists.", agent.Id)
		return ErrConflict
	}
	if agent.Did != "" {
		for _, existing := range r.state.agents {
			if existing.Did == agent.Did {
				logger.Warnf("Agent with did %s already exists.", agent.Did)
				return ErrConflict
			}
		}
	}
	r.state.agents[agent.Id] = agent
	return nil
}

func (r *InMemoryRepo) GetAgent(ctx context.Context, id string) (model.Agent, error) {
	defer r.lock(ctx)()
	agent, ok := r.state.agents[id]
	if !ok {
		return agent, ErrNotFound
	}
	return agent, nil
}

func (r *InMemoryRepo) GetAgentByDid(ctx context.Context, did string) (agent model.Agent, err error) {
	defer r.lock(ctx)()
	for _, agent := range r.state.agents {
		if agent.Did == did {
			return agent, nil
		}
	}
	return agent, ErrNotFound
}

func (r *InMemoryRepo) GetAgents(ctx context.Context, query AgentQuery, limit int, offset int) ([]model.Agent, error) {
	defer r.lock(ctx)()
	verified := map[string]bool{}
	for _, credential := range r.state.credentials {
		if credential.Verified {
			verified[credential.AgentId] = true
		}
	}
	search := strings.ToLower(query.Search)
	agents := make([]model.Agent, 0, len(r.state.agents))
	for _, agent := range r.state.agents {
		if search != "" && !strings.Contains(strings.ToLower(agent.Name), search) && !strings.Contains(strings.ToLower(agent.Did), search) {
			continue
		}
		if query.Verified != nil && verified[agent.Id] != *query.Verified {
			continue
		}
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool {
		a, b := agents[i], agents[j]
		switch query.Sort {
		case SortByName:
			nameA, nameB := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if nameA != nameB {
				return nameA < nameB
			}
		case SortByDate:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		default:
			if a.TrustScore != b.TrustScore {
				return a.TrustScore > b.TrustScore
			}
		}
		return a.Id < b.Id
	})
	return page(agents, limit, offset), nil
}

func (r *InMemoryRepo) CountAgents(ctx context.Context) (int, error) {
	defer r.lock(ctx)()
	return len(r.state.agents), nil
}

func (r *InMemoryRepo) LockAgent(ctx context.Context, id string) error {
	if !r.inTransaction(ctx) {
		logger.Warnf("Agent %s locked outside of a transaction, the lock has no effect.", id)
	}
	_, err := r.GetAgent(ctx, id)
	return err
}

func (r *InMemoryRepo) UpdateAgentTrustScore(ctx context.Context, agentId string, trustScore int, updatedAt time.Time) error {
	defer r.lock(ctx)()
	agent, ok := r.state.agents[agentId]
	if !ok {
		return ErrNotFound
	}
	agent.TrustScore = trustScore
	agent.UpdatedAt = updatedAt
	r.state.agents[agentId] = agent
	return nil
}

func (r *InMemoryRepo) CreateCredentialRequest(ctx context.Context, request model.CredentialRequest) error {
	defer r.lock(ctx)()
	if _, ok := r.state.requests[request.Id]; ok {
		return ErrConflict
	}
	r.state.requests[request.Id] = request
	return nil
}

func (r *InMemoryRepo) GetCredentialRequest(ctx context.Context, id string) (model.CredentialRequest, error) {
	defer r.lock(ctx)()
	request, ok := r.state.requests[id]
	if !ok {
		return request, ErrNotFound
	}
	return request, nil
}

func (r *InMemoryRepo) GetCredentialRequests(ctx context.Context, query RequestQuery, limit int, offset int) ([]model.CredentialRequest, error) {
	defer r.lock(ctx)()
	requests := []model.CredentialRequest{}
	for _, request := range r.state.requests {
		if query.AgentId != "" && request.AgentId != query.AgentId {
			continue
		}
		if query.Status != "" && request.Status != query.Status {
			continue
		}
		if query.Type != "" && request.Type != query.Type {
			continue
		}
		requests = append(requests, request)
	}
	sort.Slice(requests, func(i, j int) bool {
		return newerFirst(requests[i].CreatedAt, requests[j].CreatedAt, requests[i].Id, requests[j].Id)
	})
	return page(requests, limit, offset), nil
}

func (r *InMemoryRepo) UpdateCredentialRequestStatus(ctx context.Context, change StatusChange) error {
	defer r.lock(ctx)()
	request, ok := r.state.requests[change.RequestId]
	if !ok {
		return ErrNotFound
	}
	if request.Status != change.From {
		logger.Debugf("Request %s is %s, expected %s.", request.Id, request.Status, change.From)
		return ErrStatusConflict
	}
	request.Status = change.To
	request.Reason = change.Reason
	request.CredentialId = change.CredentialId
	request.UpdatedAt = change.ChangedAt
	r.state.requests[change.RequestId] = request
	return nil
}

func (r *InMemoryRepo) CreateCredential(ctx context.Context, credential model.Credential) error {
	defer r.lock(ctx)()
	if _, ok := r.state.credentials[credential.Id]; ok {
		return ErrConflict
	}
	logger.Debugf("Store credential %s.", logging.PrettyPrintObject(credential))
	r.state.credentials[credential.Id] = credential
	return nil
}

func (r *InMemoryRepo) GetCredentials(ctx context.Context, agentId string) ([]model.Credential, error) {
	defer r.lock(ctx)()
	credentials := []model.Credential{}
	for _, credential := range r.state.credentials {
		if credential.AgentId == agentId {
			credentials = append(credentials, credential)
		}
	}
	sort.Slice(credentials, func(i, j int) bool {
		return newerFirst(credentials[i].CreatedAt, credentials[j].CreatedAt, credentials[i].Id, credentials[j].Id)
	})
	return credentials, nil
}

func (r *InMemoryRepo) ListCredentials(ctx context.Context, limit int, offset int) ([]model.Credential, error) {
	defer r.lock(ctx)()
	credentials := make([]model.Credential, 0, len(r.state.credentials))
	for _, credential := range r.state.credentials {
		credentials = append(credentials, credential)
	}
	sort.Slice(credentials, func(i, j int) bool {
		return newerFirst(credentials[i].CreatedAt, credentials[j].CreatedAt, credentials[i].Id, credentials[j].Id)
	})
	return page(credentials, limit, offset), nil
}

func (r *InMemoryRepo) CountCredentials(ctx context.Context) (int, error) {
	defer r.lock(ctx)()
	return len(r.state.credentials), nil
}

func (r *InMemoryRepo) CreateTimelineEvent(ctx context.Context, event model.TimelineEvent) error {
	defer r.lock(ctx)()
	r.state.events = append(r.state.events, event)
	return nil
}

func (r *InMemoryRepo) GetTimelineEvents(ctx context.Context, agentId string) ([]model.TimelineEvent, error) {
	defer r.lock(ctx)()
	events := []model.TimelineEvent{}
	for _, event := range r.state.events {
		if event.AgentId == agentId {
			events = append(events, event)
		}
	}
	// events are appended in order, newest first is the reverse
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func newerFirst(a time.Time, b time.Time, idA string, idB string) bool {
	if a.Equal(b) {
		return idA < idB
	}
	return a.After(b)
}

func page[T any](entries []T, limit int, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []T{}
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
