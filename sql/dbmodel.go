package sql

import "time"

type Agent struct {
	ID           string
	Did          string
	Name         string
	Creator      string
	Owner        string
	TrustScore   int
	Logo         string
	Description  string
	Capabilities string
	Limitations  string
	Category     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CredentialRequest struct {
	ID           string
	AgentID      string
	Type         string
	Status       string
	Notes        string
	Evidence     string
	RequesterID  string
	Reason       string
	CredentialID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Credential struct {
	ID                  string
	AgentID             string
	CredentialRequestID string
	Type                string
	Verified            bool
	Status              string
	// opaque payload as returned by the did registry
	VcData    string
	CreatedAt time.Time
}

type TimelineEvent struct {
	ID          string
	AgentID     string
	Kind        string
	Description string
	CreatedAt   time.Time
}
