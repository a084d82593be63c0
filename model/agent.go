package model

import "time"

// Agent as registered in the trust registry.
type Agent struct {
	Id           string    `json:"id"`
	Did          string    `json:"did"`
	Name         string    `json:"name"`
	Creator      string    `json:"creator,omitempty"`
	Owner        string    `json:"owner,omitempty"`
	TrustScore   int       `json:"trustScore"`
	Logo         string    `json:"logo,omitempty"`
	Description  string    `json:"description,omitempty"`
	Capabilities string    `json:"capabilities,omitempty"`
	Limitations  string    `json:"limitations,omitempty"`
	Category     string    `json:"category,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type TimelineEventKind string

const (
	AgentRegistered  TimelineEventKind = "AGENT_REGISTERED"
	RequestSubmitted TimelineEventKind = "REQUEST_SUBMITTED"
	CredentialIssued TimelineEventKind = "CREDENTIAL_ISSUED"
	RequestRejected  TimelineEventKind = "REQUEST_REJECTED"
)

// TimelineEvent records something that happened to an agent.
type TimelineEvent struct {
	Id          string            `json:"id"`
	AgentId     string            `json:"agentId"`
	Kind        TimelineEventKind `json:"kind"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"createdAt"`
}
