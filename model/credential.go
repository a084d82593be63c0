package model

import "time"

type CredentialType string

const (
	CreatorCredential    CredentialType = "Creator"
	SafetyCredential     CredentialType = "Safety"
	CapabilityCredential CredentialType = "Capability"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

const CredentialStatusActive = "ACTIVE"

// CredentialRequest is a claim of an agent owner for a credential of the given type.
type CredentialRequest struct {
	Id           string         `json:"id"`
	AgentId      string         `json:"agentId"`
	Type         CredentialType `json:"type"`
	Status       RequestStatus  `json:"status"`
	Notes        string         `json:"notes,omitempty"`
	Evidence     string         `json:"evidence,omitempty"`
	RequesterId  string         `json:"requesterId,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	CredentialId string         `json:"credentialId,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Credential is an issued attestation. VcData is the payload produced by the DID registry and is never interpreted here.
type Credential struct {
	Id                  string         `json:"id"`
	AgentId             string         `json:"agentId"`
	CredentialRequestId string         `json:"credentialRequestId,omitempty"`
	Type                CredentialType `json:"type"`
	Verified            bool           `json:"verified"`
	Status              string         `json:"status"`
	VcData              string         `json:"vcData,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
}
