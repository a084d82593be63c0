package model

import "encoding/json"

// data structures of the did registry api

type DIDRequest struct {
	Network                string `json:"network"`
	IdentifierFormatType   string `json:"identifierFormatType"`
	AssertionMethod        bool   `json:"assertionMethod"`
	VerificationMethodType string `json:"verificationMethodType"`
	Key                    string `json:"key,omitempty"`
}

type DIDKey struct {
	Kid          string `json:"kid"`
	Kms          string `json:"kms"`
	Type         string `json:"type"`
	PublicKeyHex string `json:"publicKeyHex"`
	Controller   string `json:"controller,omitempty"`
}

type DIDService struct {
	Id              string   `json:"id"`
	Type            string   `json:"type"`
	ServiceEndpoint []string `json:"serviceEndpoint"`
}

type DID struct {
	Did             string       `json:"did"`
	ControllerKeyId string       `json:"controllerKeyId,omitempty"`
	Keys            []DIDKey     `json:"keys,omitempty"`
	Services        []DIDService `json:"services,omitempty"`
}

// DIDResolution as returned by the registry. The document parts are passed through unparsed.
type DIDResolution struct {
	DidDocument           json.RawMessage `json:"didDocument,omitempty"`
	DidResolutionMetadata json.RawMessage `json:"didResolutionMetadata,omitempty"`
	DidDocumentMetadata   json.RawMessage `json:"didDocumentMetadata,omitempty"`
}

type DIDResourceRequest struct {
	Data     string `json:"data"`
	Encoding string `json:"encoding"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

type DIDResource struct {
	ResourceURI          string `json:"resourceURI"`
	ResourceCollectionId string `json:"resourceCollectionId"`
	ResourceId           string `json:"resourceId"`
	ResourceName         string `json:"resourceName"`
	ResourceType         string `json:"resourceType"`
	MediaType            string `json:"mediaType"`
	Created              string `json:"created"`
}

type DIDResourceResponse struct {
	Resource DIDResource `json:"resource"`
}

type CredentialPayload struct {
	IssuerDid  string            `json:"issuerDid"`
	SubjectDid string            `json:"subjectDid"`
	Attributes map[string]string `json:"attributes"`
	Type       []string          `json:"type,omitempty"`
	Format     string            `json:"format,omitempty"`
}

type VerificationPolicies struct {
	IssuanceDate   bool `json:"issuanceDate"`
	ExpirationDate bool `json:"expirationDate"`
	Audience       bool `json:"audience"`
}

type VerificationRequest struct {
	Credential json.RawMessage      `json:"credential"`
	Policies   VerificationPolicies `json:"policies"`
}

type CredentialVerification struct {
	Verified bool   `json:"verified"`
	Issuer   string `json:"issuer"`
}
