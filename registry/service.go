package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fiware/agent-trust-registry/didregistry"
	"github.com/fiware/agent-trust-registry/logging"
	"github.com/fiware/agent-trust-registry/model"
	"github.com/fiware/agent-trust-registry/repository"
	"github.com/fiware/agent-trust-registry/score"
	"github.com/google/uuid"
)

var logger = logging.Log()

// DidPublisher creates the identity of new agents and publishes their metadata.
type DidPublisher interface {
	NewDID(ctx context.Context) (string, error)
	CreateLinkedResource(ctx context.Context, did string, data interface{}) (model.DIDResource, error)
}

// CredentialVerifier checks the proof of an issued credential at the did registry.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, credential json.RawMessage) (model.CredentialVerification, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

type Registration struct {
	Name         string `json:"name"`
	Did          string `json:"did,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Logo         string `json:"logo,omitempty"`
	Description  string `json:"description,omitempty"`
	Capabilities string `json:"capabilities,omitempty"`
	Limitations  string `json:"limitations,omitempty"`
	Category     string `json:"category,omitempty"`
}

// agentDocument is published as linked resource of the agents did
type agentDocument struct {
	Capabilities string `json:"capabilities"`
	Limitations  string `json:"limitations"`
	Category     string `json:"category"`
	Creator      string `json:"creator"`
	Description  string `json:"description"`
}

type Coverage struct {
	Type         model.CredentialType `json:"type"`
	Verified     bool                 `json:"verified"`
	CredentialId string               `json:"credentialId,omitempty"`
}

// CredentialCheck is the registry's answer on a stored credential. Unchecked credentials carry no vc or the registry
// could not be asked.
type CredentialCheck struct {
	CredentialId string               `json:"credentialId"`
	Type         model.CredentialType `json:"type"`
	Checked      bool                 `json:"checked"`
	Verified     bool                 `json:"verified"`
	Issuer       string               `json:"issuer,omitempty"`
}

// Verification is the public view on an agent, as requested by relying parties.
type Verification struct {
	Agent       model.Agent        `json:"agent"`
	Credentials []model.Credential `json:"credentials"`
	Coverage    []Coverage         `json:"coverage"`
	Breakdown   score.Result       `json:"breakdown"`
	Rating      score.Rating       `json:"rating"`
	Checks      []CredentialCheck  `json:"checks"`
	Resolved    bool               `json:"resolved"`
	DidDocument json.RawMessage    `json:"didDocument,omitempty"`
}

// IssuedCredential is a credential together with the agent holding it.
type IssuedCredential struct {
	model.Credential
	AgentName string `json:"agentName"`
	AgentDid  string `json:"agentDid"`
}

type Stats struct {
	Agents      int `json:"agents"`
	Credentials int `json:"credentials"`
}

// Service manages the registered agents. Publisher, resolver and verifier are optional.
type Service struct {
	repo       repository.Repository
	publisher  DidPublisher
	resolver   didregistry.Resolver
	verifier   CredentialVerifier
	scoreModel score.Model
	clock      Clock
	newId      func() string
}

func NewService(repo repository.Repository, publisher DidPublisher, resolver didregistry.Resolver, verifier CredentialVerifier, scoreModel score.Model) *Service {
	return &Service{repo: repo, publisher: publisher, resolver: resolver, verifier: verifier, scoreModel: scoreModel, clock: realClock{}, newId: uuid.NewString}
}

func (s *Service) ScoreModel() score.Model {
	return s.scoreModel
}

/**
* RegisterAgent stores a new agent with a trust score of 0. Agents without did get a new one from the registry, the
* metadata is published as linked resource of the did before the agent is stored.
 */
func (s *Service) RegisterAgent(ctx context.Context, registration Registration) (agent model.Agent, err error) {
	registration.Name = strings.TrimSpace(registration.Name)
	registration.Did = strings.TrimSpace(registration.Did)
	if registration.Name == "" {
		return agent, &model.ValidationError{Field: "name", Message: "An agent needs a name."}
	}
	if registration.Did != "" {
		_, err := s.repo.GetAgentByDid(ctx, registration.Did)
		if err == nil {
			return agent, &model.ValidationError{Field: "did", Message: fmt.Sprintf("An agent with did %s is already registered.", registration.Did)}
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return agent, &model.PersistenceError{Message: "Was not able to check the did.", RootError: err}
		}
	}

	did := registration.Did
	if s.publisher == nil {
		if did == "" {
			return agent, &model.ValidationError{Field: "did", Message: "No did registry is configured, a did has to be provided."}
		}
	} else {
		if did == "" {
			did, err = s.publisher.NewDID(ctx)
			if err != nil {
				return agent, &model.UpstreamError{Message: "Was not able to create a did for the agent.", RootError: err}
			}
			logger.Infof("Created did %s for agent %s.", did, registration.Name)
		}
		document := agentDocument{
			Capabilities: registration.Capabilities,
			Limitations:  registration.Limitations,
			Category:     registration.Category,
			Creator:      registration.Creator,
			Description:  registration.Description,
		}
		if _, err = s.publisher.CreateLinkedResource(ctx, did, document); err != nil {
			return agent, &model.UpstreamError{Message: fmt.Sprintf("Was not able to publish the agent document at %s.", did), RootError: err}
		}
	}

	now := s.clock.Now()
	agent = model.Agent{
		Id:           s.newId(),
		Did:          did,
		Name:         registration.Name,
		Creator:      registration.Creator,
		Owner:        registration.Owner,
		TrustScore:   score.MinScore,
		Logo:         registration.Logo,
		Description:  registration.Description,
		Capabilities: registration.Capabilities,
		Limitations:  registration.Limitations,
		Category:     registration.Category,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateAgent(ctx, agent); err != nil {
			return err
		}
		return s.repo.CreateTimelineEvent(ctx, model.TimelineEvent{Id: s.newId(), AgentId: agent.Id, Kind: model.AgentRegistered, Description: fmt.Sprintf("Agent registered with did %s.", did), CreatedAt: now})
	})
	if errors.Is(err, repository.ErrConflict) {
		return model.Agent{}, &model.ValidationError{Field: "did", Message: fmt.Sprintf("An agent with did %s is already registered.", did)}
	}
	if err != nil {
		return model.Agent{}, &model.PersistenceError{Message: "Was not able to store the agent.", RootError: err}
	}
	logger.Infof("Agent %s registered as %s.", agent.Id, agent.Did)
	return agent, nil
}

func (s *Service) GetAgent(ctx context.Context, id string) (model.Agent, error) {
	agent, err := s.repo.GetAgent(ctx, id)
	return agent, s.lookupError(err, "Agent", id)
}

func (s *Service) GetAgents(ctx context.Context, query repository.AgentQuery, limit int, offset int) ([]model.Agent, error) {
	agents, err := s.repo.GetAgents(ctx, query, limit, offset)
	if err != nil {
		return agents, &model.PersistenceError{Message: "Was not able to list the agents.", RootError: err}
	}
	return agents, nil
}

func (s *Service) GetAgentCredentials(ctx context.Context, agentId string) ([]model.Credential, error) {
	if _, err := s.GetAgent(ctx, agentId); err != nil {
		return nil, err
	}
	credentials, err := s.repo.GetCredentials(ctx, agentId)
	if err != nil {
		return credentials, &model.PersistenceError{Message: "Was not able to load the credentials.", RootError: err}
	}
	return credentials, nil
}

// GetCredentials lists the credentials of all agents, newest first.
func (s *Service) GetCredentials(ctx context.Context, limit int, offset int) ([]IssuedCredential, error) {
	credentials, err := s.repo.ListCredentials(ctx, limit, offset)
	if err != nil {
		return nil, &model.PersistenceError{Message: "Was not able to list the credentials.", RootError: err}
	}
	agents := map[string]model.Agent{}
	issued := make([]IssuedCredential, 0, len(credentials))
	for _, credential := range credentials {
		agent, ok := agents[credential.AgentId]
		if !ok {
			agent, err = s.repo.GetAgent(ctx, credential.AgentId)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, &model.PersistenceError{Message: fmt.Sprintf("Was not able to load agent %s.", credential.AgentId), RootError: err}
			}
			if err != nil {
				logger.Warnf("Credential %s belongs to the unknown agent %s.", credential.Id, credential.AgentId)
			}
			agents[credential.AgentId] = agent
		}
		issued = append(issued, IssuedCredential{Credential: credential, AgentName: agent.Name, AgentDid: agent.Did})
	}
	return issued, nil
}

func (s *Service) GetTimeline(ctx context.Context, agentId string) ([]model.TimelineEvent, error) {
	if _, err := s.GetAgent(ctx, agentId); err != nil {
		return nil, err
	}
	events, err := s.repo.GetTimelineEvents(ctx, agentId)
	if err != nil {
		return events, &model.PersistenceError{Message: "Was not able to load the timeline.", RootError: err}
	}
	return events, nil
}

func (s *Service) Stats(ctx context.Context) (stats Stats, err error) {
	stats.Agents, err = s.repo.CountAgents(ctx)
	if err != nil {
		return stats, &model.PersistenceError{Message: "Was not able to count the agents.", RootError: err}
	}
	stats.Credentials, err = s.repo.CountCredentials(ctx)
	if err != nil {
		return stats, &model.PersistenceError{Message: "Was not able to count the credentials.", RootError: err}
	}
	return stats, nil
}

/**
* Verify collects everything a relying party needs to decide on an agent. The rating follows the stored trust score,
* the breakdown shows how the weighted model would rate the current credentials. A failing did resolution is not an
* error, the verification is then marked as unresolved. The same holds for credentials the registry could not check.
 */
func (s *Service) Verify(ctx context.Context, did string) (verification Verification, err error) {
	agent, err := s.repo.GetAgentByDid(ctx, did)
	if err = s.lookupError(err, "Agent with did", did); err != nil {
		return verification, err
	}
	credentials, err := s.repo.GetCredentials(ctx, agent.Id)
	if err != nil {
		return verification, &model.PersistenceError{Message: "Was not able to load the credentials.", RootError: err}
	}

	verification = Verification{
		Agent:       agent,
		Credentials: credentials,
		Coverage:    s.coverage(credentials),
		Breakdown:   s.scoreModel.Evaluate(credentials),
		Rating:      score.Rate(agent.TrustScore),
		Checks:      s.check(ctx, credentials),
	}
	if s.resolver != nil {
		resolution, err := s.resolver.ResolveDID(ctx, did)
		if err != nil {
			logger.Warnf("Was not able to resolve did %s. Err: %v", did, err)
		} else {
			verification.Resolved = true
			verification.DidDocument = resolution.DidDocument
		}
	}
	return verification, nil
}

func (s *Service) check(ctx context.Context, credentials []model.Credential) []CredentialCheck {
	checks := make([]CredentialCheck, 0, len(credentials))
	for _, credential := range credentials {
		check := CredentialCheck{CredentialId: credential.Id, Type: credential.Type}
		if s.verifier != nil && credential.VcData != "" {
			result, err := s.verifier.VerifyCredential(ctx, json.RawMessage(credential.VcData))
			if err != nil {
				logger.Warnf("Was not able to check credential %s. Err: %v", credential.Id, err)
			} else {
				check.Checked = true
				check.Verified = result.Verified
				check.Issuer = result.Issuer
			}
		}
		checks = append(checks, check)
	}
	return checks
}

func (s *Service) coverage(credentials []model.Credential) []Coverage {
	types := s.scoreModel.Types()
	coverage := make([]Coverage, 0, len(types))
	for _, credentialType := range types {
		entry := Coverage{Type: credentialType}
		for _, credential := range credentials {
			if credential.Type == credentialType && credential.Verified {
				entry.Verified = true
				entry.CredentialId = credential.Id
				break
			}
		}
		coverage = append(coverage, entry)
	}
	return coverage
}

func (s *Service) lookupError(err error, kind string, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &model.NotFoundError{Kind: kind, Id: id}
	}
	return &model.PersistenceError{Message: fmt.Sprintf("Was not able to load %s %s.", strings.ToLower(kind), id), RootError: err}
}
