package didregistry

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fiware/agent-trust-registry/config"
	client "github.com/fiware/agent-trust-registry/http"
	"github.com/fiware/agent-trust-registry/logging"
	"github.com/fiware/agent-trust-registry/model"
)

var logger = logging.Log()

const (
	DefaultRegistryUrl = "https://studio-api.cheqd.net"
	// name and type of the resource that carries the agent metadata
	ResourceName = "AIAgentCredentials"
	ResourceType = "AIAgentDocument"

	apiKeyHeader = "x-api-key"
	// the api reports failures with a json body, larger bodies are not read
	maxErrorBody = 4096
)

/**
* Client of the did registry. All calls are authenticated with the configured api key, the issuer did is used
* as issuer of every credential issued through the client.
 */
type Client struct {
	baseUrl    string
	apiKey     string
	issuerDid  string
	network    string
	httpClient client.Client
}

func NewClient(registryConfig config.DidRegistryConfig, httpClient client.Client) *Client {
	baseUrl := registryConfig.Url
	if baseUrl == "" {
		baseUrl = DefaultRegistryUrl
	}
	if httpClient == nil {
		httpClient = client.HttpClient()
	}
	return &Client{
		baseUrl:    strings.TrimSuffix(baseUrl, "/"),
		apiKey:     registryConfig.ApiKey,
		issuerDid:  registryConfig.IssuerDid,
		network:    registryConfig.Network,
		httpClient: httpClient,
	}
}

// Url the client sends its requests to.
func (c *Client) Url() string {
	return c.baseUrl
}

func (c *Client) CreateDID(ctx context.Context, request model.DIDRequest) (did model.DID, err error) {
	if request.Network == "" {
		request.Network = c.network
	}
	err = c.call(ctx, http.MethodPost, "did/create", request, &did)
	if err == nil && did.Did == "" {
		return did, &model.HttpError{Status: http.StatusBadGateway, Message: "Registry did not return a did."}
	}
	return did, err
}

// NewDID creates a fresh did with the default settings of the registry.
func (c *Client) NewDID(ctx context.Context) (string, error) {
	did, err := c.CreateDID(ctx, model.DIDRequest{
		Network:                c.network,
		IdentifierFormatType:   "uuid",
		AssertionMethod:        false,
		VerificationMethodType: "Ed25519VerificationKey2018",
	})
	return did.Did, err
}

func (c *Client) ResolveDID(ctx context.Context, did string) (resolution model.DIDResolution, err error) {
	err = c.call(ctx, http.MethodGet, "did/search/"+url.PathEscape(did), nil, &resolution)
	return resolution, err
}

// CreateLinkedResource publishes the data as base64 encoded json resource linked to the did.
func (c *Client) CreateLinkedResource(ctx context.Context, did string, data interface{}) (resource model.DIDResource, err error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return resource, &model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to encode the resource.", RootError: err}
	}
	request := model.DIDResourceRequest{
		Data:     base64.StdEncoding.EncodeToString(jsonData),
		Encoding: "base64",
		Name:     ResourceName,
		Type:     ResourceType,
	}
	var response model.DIDResourceResponse
	err = c.call(ctx, http.MethodPost, "resource/create/"+url.PathEscape(did), request, &response)
	if err != nil {
		return resource, err
	}
	if response.Resource.ResourceURI == "" {
		return resource, &model.HttpError{Status: http.StatusBadGateway, Message: "Registry did not return a resource."}
	}
	return response.Resource, nil
}

func (c *Client) IssueCredential(ctx context.Context, payload model.CredentialPayload) (credential json.RawMessage, err error) {
	if payload.IssuerDid == "" {
		payload.IssuerDid = c.issuerDid
	}
	err = c.call(ctx, http.MethodPost, "credential/issue", payload, &credential)
	return credential, err
}

/**
* Issues a credential of the given type for the subject and returns the credential as opaque string, as it is
* stored with the credential record.
 */
func (c *Client) Issue(ctx context.Context, subjectDid string, credentialType model.CredentialType, attributes map[string]string) (string, error) {
	if c.issuerDid == "" {
		return "", &model.HttpError{Status: http.StatusInternalServerError, Message: "No issuer did configured."}
	}
	credential, err := c.IssueCredential(ctx, model.CredentialPayload{
		IssuerDid:  c.issuerDid,
		SubjectDid: subjectDid,
		Attributes: attributes,
		Type:       []string{string(credentialType)},
	})
	if err != nil {
		return "", err
	}
	return string(credential), nil
}

func (c *Client) VerifyCredential(ctx context.Context, credential json.RawMessage) (verification model.CredentialVerification, err error) {
	err = c.call(ctx, http.MethodPost, "credential/verify", model.VerificationRequest{Credential: credential}, &verification)
	return verification, err
}

func (c *Client) call(ctx context.Context, method string, path string, body interface{}, result interface{}) error {
	address := c.baseUrl + "/" + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return &model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to encode the registry request.", RootError: err}
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	request, err := http.NewRequestWithContext(ctx, method, address, bodyReader)
	if err != nil {
		return &model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to create the registry request.", RootError: err}
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set(apiKeyHeader, c.apiKey)

	response, err := c.httpClient.Do(request)
	if err != nil || response == nil {
		logger.Debugf("Was not able to reach the registry at %s, error is %v", address, err)
		return &model.HttpError{Status: http.StatusBadGateway, Message: fmt.Sprintf("Was not able to reach the registry at %s.", path), RootError: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		logger.Infof("Registry answered %d on %s %s: %s", response.StatusCode, method, path, errorBody)
		return &model.HttpError{Status: http.StatusBadGateway, Message: fmt.Sprintf("Registry answered %d on %s.", response.StatusCode, path), RootError: fmt.Errorf("%s", errorBody)}
	}

	if result == nil {
		return nil
	}
	err = json.NewDecoder(response.Body).Decode(result)
	if err != nil {
		return &model.HttpError{Status: http.StatusBadGateway, Message: fmt.Sprintf("Was not able to decode the registry response of %s.", path), RootError: err}
	}
	return nil
}
