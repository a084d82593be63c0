package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fiware/agent-trust-registry/logging"
	"github.com/fiware/agent-trust-registry/model"
	"github.com/fiware/agent-trust-registry/repository"
	"github.com/fiware/agent-trust-registry/score"
	"github.com/google/uuid"
)

var logger = logging.Log()

const (
	opSubmit  = "submit"
	opApprove = "approve"
	opReject  = "reject"
)

// CredentialIssuer produces the verifiable credential stored with an approved request.
type CredentialIssuer interface {
	Issue(ctx context.Context, subjectDid string, credentialType model.CredentialType, attributes map[string]string) (vcData string, err error)
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

type Submission struct {
	AgentId     string               `json:"agentId"`
	Type        model.CredentialType `json:"type"`
	Notes       string               `json:"notes,omitempty"`
	Evidence    string               `json:"evidence,omitempty"`
	RequesterId string               `json:"requesterId,omitempty"`
}

// Preview of the impact an approval would have on the agents trust score.
type Preview struct {
	RequestId     string               `json:"requestId"`
	AgentId       string               `json:"agentId"`
	Type          model.CredentialType `json:"type"`
	CurrentScore  int                  `json:"currentScore"`
	QuickEstimate int                  `json:"quickEstimate"`
	Projection    score.Result         `json:"projection"`
	Rating        score.Rating         `json:"rating"`
}

/**
* Controller owns the state machine of credential requests. Requests start as PENDING and end as either
* APPROVED or REJECTED. An approval creates the credential, sets the agents trust score and moves the request
* in one unit of work.
 */
type Controller struct {
	repo       repository.Repository
	issuer     CredentialIssuer
	scoreModel score.Model
	clock      Clock
	metrics    *Metrics
	newId      func() string
}

// NewController creates the controller. Without issuer, approvals store credentials without vc payload.
func NewController(repo repository.Repository, issuer CredentialIssuer, scoreModel score.Model, metrics *Metrics) *Controller {
	return &Controller{repo: repo, issuer: issuer, scoreModel: scoreModel, clock: RealClock{}, metrics: metrics, newId: uuid.NewString}
}

func (c *Controller) ScoreModel() score.Model {
	return c.scoreModel
}

func (c *Controller) SubmitRequest(ctx context.Context, submission Submission) (request model.CredentialRequest, err error) {
	defer func() {
		if err != nil {
			c.metrics.failure(opSubmit, err)
		}
	}()

	submission.AgentId = strings.TrimSpace(submission.AgentId)
	if submission.AgentId == "" {
		return request, &model.ValidationError{Field: "agentId", Message: "An agent is required."}
	}
	if !c.scoreModel.Knows(submission.Type) {
		return request, &model.ValidationError{Field: "type", Message: fmt.Sprintf("Unknown credential type %q, supported are %v.", submission.Type, c.scoreModel.Types())}
	}
	if _, err := c.repo.GetAgent(ctx, submission.AgentId); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return request, &model.ValidationError{Field: "agentId", Message: fmt.Sprintf("Agent %s does not exist.", submission.AgentId)}
		}
		return request, &model.PersistenceError{Message: "Was not able to load the agent.", RootError: err}
	}

	now := c.clock.Now()
	request = model.CredentialRequest{
		Id:          c.newId(),
		AgentId:     submission.AgentId,
		Type:        submission.Type,
		Status:      model.StatusPending,
		Notes:       submission.Notes,
		Evidence:    submission.Evidence,
		RequesterId: submission.RequesterId,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = c.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := c.repo.LockAgent(ctx, request.AgentId); err != nil {
			return err
		}
		open, err := c.repo.GetCredentialRequests(ctx, repository.RequestQuery{AgentId: request.AgentId, Status: model.StatusPending, Type: request.Type}, 1, 0)
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return &model.ValidationError{Field: "type", Message: fmt.Sprintf("Request %s for a %s credential is still pending.", open[0].Id, request.Type)}
		}
		if err := c.repo.CreateCredentialRequest(ctx, request); err != nil {
			return err
		}
		return c.repo.CreateTimelineEvent(ctx, c.event(request.AgentId, model.RequestSubmitted, fmt.Sprintf("Requested a %s credential.", request.Type), now))
	})
	if err != nil {
		var validationErr *model.ValidationError
		if errors.As(err, &validationErr) {
			return model.CredentialRequest{}, validationErr
		}
		return model.CredentialRequest{}, &model.PersistenceError{Message: "Was not able to store the request.", RootError: err}
	}
	logger.Infof("Request %s for a %s credential of agent %s submitted.", request.Id, request.Type, request.AgentId)
	c.metrics.transition(request.Type, model.StatusPending)
	return request, nil
}

// ApproveRequest approves with the given score, which replaces the agents trust score.
func (c *Controller) ApproveRequest(ctx context.Context, requestId string, computedScore int) (model.Credential, error) {
	if computedScore < score.MinScore || computedScore > score.MaxScore {
		err := &model.ValidationError{Field: "score", Message: fmt.Sprintf("Score %d is not within [%d,%d].", computedScore, score.MinScore, score.MaxScore)}
		c.metrics.failure(opApprove, err)
		return model.Credential{}, err
	}
	return c.approve(ctx, requestId, func(ctx context.Context, agentId string, credentialType model.CredentialType) (int, error) {
		return computedScore, nil
	})
}

/**
* ApproveRequestWithModel approves with the score of the weighted model, evaluated on the credentials persisted at
* commit time plus the new one.
 */
func (c *Controller) ApproveRequestWithModel(ctx context.Context, requestId string) (model.Credential, error) {
	return c.approve(ctx, requestId, func(ctx context.Context, agentId string, credentialType model.CredentialType) (int, error) {
		credentials, err := c.repo.GetCredentials(ctx, agentId)
		if err != nil {
			return 0, err
		}
		return c.scoreModel.Project(credentials, credentialType).Score, nil
	})
}

type scoreFunc func(ctx context.Context, agentId string, credentialType model.CredentialType) (int, error)

func (c *Controller) approve(ctx context.Context, requestId string, scoreOf scoreFunc) (credential model.Credential, err error) {
	started := time.Now()
	defer func() {
		if err != nil {
			c.metrics.failure(opApprove, err)
		}
	}()

	request, err := c.getPending(ctx, requestId, model.StatusApproved)
	if err != nil {
		return credential, err
	}
	agent, err := c.repo.GetAgent(ctx, request.AgentId)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return credential, &model.NotFoundError{Kind: "Agent", Id: request.AgentId}
		}
		return credential, &model.PersistenceError{Message: "Was not able to load the agent.", RootError: err}
	}

	vcData := ""
	if c.issuer != nil {
		attributes := map[string]string{
			"agentId":        agent.Id,
			"agentName":      agent.Name,
			"credentialType": string(request.Type),
			"requestId":      request.Id,
		}
		vcData, err = c.issuer.Issue(ctx, agent.Did, request.Type, attributes)
		if err != nil {
			logger.Warnf("Issuance of the %s credential for agent %s failed. Err: %v", request.Type, agent.Id, err)
			return credential, &model.UpstreamError{Message: "Credential issuance failed, the request stays pending.", RootError: err}
		}
	}

	now := c.clock.Now()
	credential = model.Credential{
		Id:                  c.newId(),
		AgentId:             agent.Id,
		CredentialRequestId: request.Id,
		Type:                request.Type,
		Verified:            true,
		Status:              model.CredentialStatusActive,
		VcData:              vcData,
		CreatedAt:           now,
	}
	var trustScore int

	err = c.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := c.repo.LockAgent(ctx, agent.Id); err != nil {
			return err
		}
		err := c.repo.UpdateCredentialRequestStatus(ctx, repository.StatusChange{
			RequestId:    request.Id,
			From:         model.StatusPending,
			To:           model.StatusApproved,
			CredentialId: credential.Id,
			ChangedAt:    now,
		})
		if err != nil {
			return err
		}
		trustScore, err = scoreOf(ctx, agent.Id, request.Type)
		if err != nil {
			return err
		}
		if err := c.repo.CreateCredential(ctx, credential); err != nil {
			return err
		}
		if err := c.repo.UpdateAgentTrustScore(ctx, agent.Id, trustScore, now); err != nil {
			return err
		}
		return c.repo.CreateTimelineEvent(ctx, c.event(agent.Id, model.CredentialIssued, fmt.Sprintf("%s credential issued, trust score set to %d.", request.Type, trustScore), now))
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			logger.Infof("Request %s was concurrently moved out of %s.", request.Id, model.StatusPending)
			return model.Credential{}, &model.InvalidStateError{RequestId: request.Id, Target: model.StatusApproved}
		}
		logger.Warnf("Approval of request %s failed, nothing was applied. Err: %v", request.Id, err)
		return model.Credential{}, &model.PersistenceError{Message: fmt.Sprintf("Approval of request %s failed, nothing was applied.", request.Id), RootError: err}
	}

	logger.Infof("Request %s approved, agent %s has a trust score of %d.", request.Id, agent.Id, trustScore)
	c.metrics.transition(request.Type, model.StatusApproved)
	c.metrics.approved(agent.Id, trustScore, started)
	return credential, nil
}

func (c *Controller) RejectRequest(ctx context.Context, requestId string, reason string) (err error) {
	defer func() {
		if err != nil {
			c.metrics.failure(opReject, err)
		}
	}()

	request, err := c.getPending(ctx, requestId, model.StatusRejected)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	err = c.repo.Transaction(ctx, func(ctx context.Context) error {
		err := c.repo.UpdateCredentialRequestStatus(ctx, repository.StatusChange{
			RequestId: request.Id,
			From:      model.StatusPending,
			To:        model.StatusRejected,
			Reason:    reason,
			ChangedAt: now,
		})
		if err != nil {
			return err
		}
		description := fmt.Sprintf("%s credential request rejected.", request.Type)
		if reason != "" {
			description = fmt.Sprintf("%s credential request rejected: %s", request.Type, reason)
		}
		return c.repo.CreateTimelineEvent(ctx, c.event(request.AgentId, model.RequestRejected, description, now))
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return &model.InvalidStateError{RequestId: request.Id, Target: model.StatusRejected}
		}
		return &model.PersistenceError{Message: fmt.Sprintf("Rejection of request %s failed, nothing was applied.", request.Id), RootError: err}
	}
	logger.Infof("Request %s rejected.", request.Id)
	c.metrics.transition(request.Type, model.StatusRejected)
	return nil
}

func (c *Controller) GetRequest(ctx context.Context, requestId string) (model.CredentialRequest, error) {
	request, err := c.repo.GetCredentialRequest(ctx, requestId)
	if errors.Is(err, repository.ErrNotFound) {
		return request, &model.NotFoundError{Kind: "Credential request", Id: requestId}
	}
	if err != nil {
		return request, &model.PersistenceError{Message: "Was not able to load the request.", RootError: err}
	}
	return request, nil
}

func (c *Controller) GetRequests(ctx context.Context, query repository.RequestQuery, limit int, offset int) ([]model.CredentialRequest, error) {
	requests, err := c.repo.GetCredentialRequests(ctx, query, limit, offset)
	if err != nil {
		return requests, &model.PersistenceError{Message: "Was not able to query the requests.", RootError: err}
	}
	return requests, nil
}

/**
* PreviewApproval shows the issuer what an approval would change: the quick estimate based on the current score and
* the projection of the weighted model. Neither is binding, the issuer decides on the score to approve with.
 */
func (c *Controller) PreviewApproval(ctx context.Context, requestId string) (preview Preview, err error) {
	request, err := c.getPending(ctx, requestId, model.StatusApproved)
	if err != nil {
		return preview, err
	}
	agent, err := c.repo.GetAgent(ctx, request.AgentId)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return preview, &model.NotFoundError{Kind: "Agent", Id: request.AgentId}
		}
		return preview, &model.PersistenceError{Message: "Was not able to load the agent.", RootError: err}
	}
	credentials, err := c.repo.GetCredentials(ctx, agent.Id)
	if err != nil {
		return preview, &model.PersistenceError{Message: "Was not able to load the credentials.", RootError: err}
	}
	projection := c.scoreModel.Project(credentials, request.Type)
	return Preview{
		RequestId:     request.Id,
		AgentId:       agent.Id,
		Type:          request.Type,
		CurrentScore:  agent.TrustScore,
		QuickEstimate: score.PreviewScore(agent.TrustScore, request.Type),
		Projection:    projection,
		Rating:        score.Rate(projection.Score),
	}, nil
}

func (c *Controller) getPending(ctx context.Context, requestId string, target model.RequestStatus) (model.CredentialRequest, error) {
	request, err := c.GetRequest(ctx, requestId)
	if err != nil {
		return request, err
	}
	if request.Status != model.StatusPending {
		return request, &model.InvalidStateError{RequestId: request.Id, Status: request.Status, Target: target}
	}
	return request, nil
}

func (c *Controller) event(agentId string, kind model.TimelineEventKind, description string, at time.Time) model.TimelineEvent {
	return model.TimelineEvent{Id: c.newId(), AgentId: agentId, Kind: kind, Description: description, CreatedAt: at}
}
