package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fiware/agent-trust-registry/logging"
	"github.com/fiware/agent-trust-registry/model"
	dbModel "github.com/fiware/agent-trust-registry/sql"
	"github.com/go-rel/rel"
	"github.com/go-rel/rel/where"
)

type SqlRepo struct {
	repo *rel.Repository
}

func NewSqlRepository(repository rel.Repository) *SqlRepo {

	sqlRepo := new(SqlRepo)
	sqlRepo.repo = &repository
	return sqlRepo
}

func (sqlRepo SqlRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return (*sqlRepo.repo).Transaction(ctx, fn)
}

func (sqlRepo SqlRepo) Ping(ctx context.Context) error {
	return (*sqlRepo.repo).Ping(ctx)
}

func (sqlRepo SqlRepo) CreateAgent(ctx context.Context, agent model.Agent) error {
	if agent.Did != "" {
		err := (*sqlRepo.repo).Find(ctx, &dbModel.Agent{}, where.Eq("did", agent.Did))
		if err == nil {
			logger.Debugf("Agent with did %s already exists", agent.Did)
			return ErrConflict
		}
		if !errors.Is(err, rel.ErrNotFound) {
			return err
		}
	}
	sqlAgent := toSqlAgent(agent)
	logger.Debugf("Insert agent %s", logging.PrettyPrintObject(sqlAgent))
	return mapInsertError((*sqlRepo.repo).Insert(ctx, &sqlAgent))
}

func (sqlRepo SqlRepo) GetAgent(ctx context.Context, id string) (agent model.Agent, err error) {
	var sqlAgent dbModel.Agent
	err = (*sqlRepo.repo).Find(ctx, &sqlAgent, where.Eq("id", id))
	if err != nil {
		return agent, mapError(err)
	}
	return fromSqlAgent(sqlAgent), nil
}

func (sqlRepo SqlRepo) GetAgentByDid(ctx context.Context, did string) (agent model.Agent, err error) {
	var sqlAgent dbModel.Agent
	err = (*sqlRepo.repo).Find(ctx, &sqlAgent, where.Eq("did", did))
	if err != nil {
		return agent, mapError(err)
	}
	return fromSqlAgent(sqlAgent), nil
}

/**
* Lists the agents matching the query. The verified filter is resolved in two steps, first the agents owning a
* verified credential are loaded, then the agents are filtered by their ids.
 */
func (sqlRepo SqlRepo) GetAgents(ctx context.Context, query AgentQuery, limit int, offset int) (agents []model.Agent, err error) {
	agents = []model.Agent{}
	filters := []rel.FilterQuery{}
	if query.Search != "" {
		filters = append(filters, searchFilter(query.Search))
	}
	if query.Verified != nil {
		var verifiedCredentials []dbModel.Credential
		err = (*sqlRepo.repo).FindAll(ctx, &verifiedCredentials, verifiedAgentsQuery())
		if err != nil {
			return agents, err
		}
		agentIds := distinctAgentIds(verifiedCredentials)
		switch {
		case *query.Verified && len(agentIds) == 0:
			return agents, nil
		case *query.Verified:
			filters = append(filters, where.In("id", agentIds...))
		case len(agentIds) > 0:
			filters = append(filters, where.Nin("id", agentIds...))
		}
	}

	var sqlAgents []dbModel.Agent
	err = (*sqlRepo.repo).FindAll(ctx, &sqlAgents, agentListQuery(query.Sort, limit, offset, filters...))
	if err != nil {
		return agents, err
	}
	for _, sqlAgent := range sqlAgents {
		agents = append(agents, fromSqlAgent(sqlAgent))
	}
	return agents, nil
}

func (sqlRepo SqlRepo) CountAgents(ctx context.Context) (int, error) {
	return (*sqlRepo.repo).Count(ctx, "agents")
}

func (sqlRepo SqlRepo) LockAgent(ctx context.Context, id string) error {
	err := (*sqlRepo.repo).Find(ctx, &dbModel.Agent{}, where.Eq("id", id), rel.ForUpdate())
	return mapError(err)
}

func (sqlRepo SqlRepo) UpdateAgentTrustScore(ctx context.Context, agentId string, trustScore int, updatedAt time.Time) error {
	updated, err := (*sqlRepo.repo).UpdateAny(ctx, rel.From("agents").Where(where.Eq("id", agentId)), rel.Set("trust_score", trustScore), rel.Set("updated_at", updatedAt))
	if err != nil {
		return err
	}
	if updated == 0 {
		// drivers reporting changed rows answer 0 for an unchanged score, only a missing agent is an error
		return mapError((*sqlRepo.repo).Find(ctx, &dbModel.Agent{}, where.Eq("id", agentId)))
	}
	return nil
}

func (sqlRepo SqlRepo) CreateCredentialRequest(ctx context.Context, request model.CredentialRequest) error {
	sqlRequest := toSqlRequest(request)
	return mapInsertError((*sqlRepo.repo).Insert(ctx, &sqlRequest))
}

func (sqlRepo SqlRepo) GetCredentialRequest(ctx context.Context, id string) (request model.CredentialRequest, err error) {
	var sqlRequest dbModel.CredentialRequest
	err = (*sqlRepo.repo).Find(ctx, &sqlRequest, where.Eq("id", id))
	if err != nil {
		return request, mapError(err)
	}
	return fromSqlRequest(sqlRequest), nil
}

func (sqlRepo SqlRepo) GetCredentialRequests(ctx context.Context, query RequestQuery, limit int, offset int) (requests []model.CredentialRequest, err error) {
	var sqlRequests []dbModel.CredentialRequest
	err = (*sqlRepo.repo).FindAll(ctx, &sqlRequests, requestQuery(query, limit, offset))
	if err != nil {
		return requests, err
	}
	requests = []model.CredentialRequest{}
	for _, sqlRequest := range sqlRequests {
		requests = append(requests, fromSqlRequest(sqlRequest))
	}
	return requests, nil
}

/**
* Conditional update, only applied if the request is still in the expected status. Concurrent transitions of the
* same request can therefore only succeed once.
 */
func (sqlRepo SqlRepo) UpdateCredentialRequestStatus(ctx context.Context, change StatusChange) error {
	updated, err := (*sqlRepo.repo).UpdateAny(ctx, statusChangeQuery(change), statusChangeMutates(change)...)
	if err != nil {
		return err
	}
	if updated == 0 {
		logger.Debugf("Request %s is not %s anymore.", change.RequestId, change.From)
		return ErrStatusConflict
	}
	return nil
}

func (sqlRepo SqlRepo) CreateCredential(ctx context.Context, credential model.Credential) error {
	sqlCredential := toSqlCredential(credential)
	return mapInsertError((*sqlRepo.repo).Insert(ctx, &sqlCredential))
}

func (sqlRepo SqlRepo) GetCredentials(ctx context.Context, agentId string) (credentials []model.Credential, err error) {
	var sqlCredentials []dbModel.Credential
	err = (*sqlRepo.repo).FindAll(ctx, &sqlCredentials, agentQuery(agentId))
	if err != nil {
		return credentials, err
	}
	credentials = []model.Credential{}
	for _, sqlCredential := range sqlCredentials {
		credentials = append(credentials, fromSqlCredential(sqlCredential))
	}
	return credentials, nil
}

func (sqlRepo SqlRepo) ListCredentials(ctx context.Context, limit int, offset int) (credentials []model.Credential, err error) {
	var sqlCredentials []dbModel.Credential
	err = (*sqlRepo.repo).FindAll(ctx, &sqlCredentials, pageQuery(limit, offset))
	if err != nil {
		return credentials, err
	}
	credentials = []model.Credential{}
	for _, sqlCredential := range sqlCredentials {
		credentials = append(credentials, fromSqlCredential(sqlCredential))
	}
	return credentials, nil
}

func (sqlRepo SqlRepo) CountCredentials(ctx context.Context) (int, error) {
	return (*sqlRepo.repo).Count(ctx, "credentials")
}

func (sqlRepo SqlRepo) CreateTimelineEvent(ctx context.Context, event model.TimelineEvent) error {
	sqlEvent := dbModel.TimelineEvent{ID: event.Id, AgentID: event.AgentId, Kind: string(event.Kind), Description: event.Description, CreatedAt: event.CreatedAt}
	return (*sqlRepo.repo).Insert(ctx, &sqlEvent)
}

func (sqlRepo SqlRepo) GetTimelineEvents(ctx context.Context, agentId string) (events []model.TimelineEvent, err error) {
	var sqlEvents []dbModel.TimelineEvent
	err = (*sqlRepo.repo).FindAll(ctx, &sqlEvents, agentQuery(agentId))
	if err != nil {
		return events, err
	}
	events = []model.TimelineEvent{}
	for _, sqlEvent := range sqlEvents {
		events = append(events, model.TimelineEvent{Id: sqlEvent.ID, AgentId: sqlEvent.AgentID, Kind: model.TimelineEventKind(sqlEvent.Kind), Description: sqlEvent.Description, CreatedAt: sqlEvent.CreatedAt})
	}
	return events, nil
}

func mapError(err error) error {
	if errors.Is(err, rel.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// a concurrent insert can pass the existence check, the unique constraint of the table catches it
func mapInsertError(err error) error {
	var constraintErr rel.ConstraintError
	if errors.As(err, &constraintErr) && constraintErr.Type == rel.UniqueConstraint {
		logger.Debugf("Insert violates %s.", constraintErr.Key)
		return ErrConflict
	}
	return err
}

func pageQuery(limit int, offset int) rel.Query {
	return paged(rel.Select().SortDesc("created_at").SortAsc("id"), limit, offset)
}

func paged(query rel.Query, limit int, offset int) rel.Query {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func agentListQuery(sort AgentSort, limit int, offset int, filters ...rel.FilterQuery) rel.Query {
	var query rel.Query
	switch sort {
	case SortByName:
		query = rel.Select().SortAsc("name").SortAsc("id")
	case SortByDate:
		query = rel.Select().SortDesc("updated_at").SortAsc("id")
	default:
		query = rel.Select().SortDesc("trust_score").SortAsc("id")
	}
	if len(filters) > 0 {
		query = query.Where(filters...)
	}
	return paged(query, limit, offset)
}

// matches name or did case-insensitive, like wildcards in the search are taken literally
func searchFilter(search string) rel.FilterQuery {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(strings.ToLower(search))
	pattern := "%" + escaped + "%"
	return where.Or(where.Fragment("LOWER(name) LIKE ?", pattern), where.Fragment("LOWER(did) LIKE ?", pattern))
}

func verifiedAgentsQuery() rel.Query {
	return rel.Select("agent_id").Where(where.Eq("verified", true))
}

func distinctAgentIds(credentials []dbModel.Credential) []interface{} {
	seen := map[string]bool{}
	agentIds := []interface{}{}
	for _, credential := range credentials {
		if !seen[credential.AgentID] {
			seen[credential.AgentID] = true
			agentIds = append(agentIds, credential.AgentID)
		}
	}
	return agentIds
}

func agentQuery(agentId string) rel.Query {
	return rel.Where(where.Eq("agent_id", agentId)).SortDesc("created_at").SortAsc("id")
}

func requestQuery(query RequestQuery, limit int, offset int) rel.Query {
	filters := []rel.FilterQuery{}
	if query.AgentId != "" {
		filters = append(filters, where.Eq("agent_id", query.AgentId))
	}
	if query.Status != "" {
		filters = append(filters, where.Eq("status", string(query.Status)))
	}
	if query.Type != "" {
		filters = append(filters, where.Eq("type", string(query.Type)))
	}
	return pageQuery(limit, offset).Where(filters...)
}

func statusChangeQuery(change StatusChange) rel.Query {
	return rel.From("credential_requests").Where(where.Eq("id", change.RequestId), where.Eq("status", string(change.From)))
}

func statusChangeMutates(change StatusChange) []rel.Mutate {
	return []rel.Mutate{
		rel.Set("status", string(change.To)),
		rel.Set("reason", change.Reason),
		rel.Set("credential_id", change.CredentialId),
		rel.Set("updated_at", change.ChangedAt),
	}
}

func toSqlAgent(agent model.Agent) dbModel.Agent {
	return dbModel.Agent{
		ID:           agent.Id,
		Did:          agent.Did,
		Name:         agent.Name,
		Creator:      agent.Creator,
		Owner:        agent.Owner,
		TrustScore:   agent.TrustScore,
		Logo:         agent.Logo,
		Description:  agent.Description,
		Capabilities: agent.Capabilities,
		Limitations:  agent.Limitations,
		Category:     agent.Category,
		CreatedAt:    agent.CreatedAt,
		UpdatedAt:    agent.UpdatedAt,
	}
}

func fromSqlAgent(sqlAgent dbModel.Agent) model.Agent {
	return model.Agent{
		Id:           sqlAgent.ID,
		Did:          sqlAgent.Did,
		Name:         sqlAgent.Name,
		Creator:      sqlAgent.Creator,
		Owner:        sqlAgent.Owner,
		TrustScore:   sqlAgent.TrustScore,
		Logo:         sqlAgent.Logo,
		Description:  sqlAgent.Description,
		Capabilities: sqlAgent.Capabilities,
		Limitations:  sqlAgent.Limitations,
		Category:     sqlAgent.Category,
		CreatedAt:    sqlAgent.CreatedAt,
		UpdatedAt:    sqlAgent.UpdatedAt,
	}
}

func toSqlRequest(request model.CredentialRequest) dbModel.CredentialRequest {
	return dbModel.CredentialRequest{
		ID:           request.Id,
		AgentID:      request.AgentId,
		Type:         string(request.Type),
		Status:       string(request.Status),
		Notes:        request.Notes,
		Evidence:     request.Evidence,
		RequesterID:  request.RequesterId,
		Reason:       request.Reason,
		CredentialID: request.CredentialId,
		CreatedAt:    request.CreatedAt,
		UpdatedAt:    request.UpdatedAt,
	}
}

func fromSqlRequest(sqlRequest dbModel.CredentialRequest) model.CredentialRequest {
	return model.CredentialRequest{
		Id:           sqlRequest.ID,
		AgentId:      sqlRequest.AgentID,
		Type:         model.CredentialType(sqlRequest.Type),
		Status:       model.RequestStatus(sqlRequest.Status),
		Notes:        sqlRequest.Notes,
		Evidence:     sqlRequest.Evidence,
		RequesterId:  sqlRequest.RequesterID,
		Reason:       sqlRequest.Reason,
		CredentialId: sqlRequest.CredentialID,
		CreatedAt:    sqlRequest.CreatedAt,
		UpdatedAt:    sqlRequest.UpdatedAt,
	}
}

func toSqlCredential(credential model.Credential) dbModel.Credential {
	return dbModel.Credential{
		ID:                  credential.Id,
		AgentID:             credential.AgentId,
		CredentialRequestID: credential.CredentialRequestId,
		Type:                string(credential.Type),
		Verified:            credential.Verified,
		Status:              credential.Status,
		VcData:              credential.VcData,
		CreatedAt:           credential.CreatedAt,
	}
}

func fromSqlCredential(sqlCredential dbModel.Credential) model.Credential {
	return model.Credential{
		Id:                  sqlCredential.ID,
		AgentId:             sqlCredential.AgentID,
		CredentialRequestId: sqlCredential.CredentialRequestID,
		Type:                model.CredentialType(sqlCredential.Type),
		Verified:            sqlCredential.Verified,
		Status:              sqlCredential.Status,
		VcData:              sqlCredential.VcData,
		CreatedAt:           sqlCredential.CreatedAt,
	}
}
