package score

import (
	"github.com/fiware/agent-trust-registry/logging"
	"github.com/fiware/agent-trust-registry/model"
)

var logger = logging.Log()

// Model holds the weights of the credential types and the factors of the weighted score.
type Model struct {
	Credentials []CredentialFact `yaml:"credentials" json:"credentials"`
	Factors     []Factor         `yaml:"factors" json:"factors"`
}

func DefaultModel() Model {
	return Model{
		Credentials: []CredentialFact{
			{Type: model.CreatorCredential, Weight: 30},
			{Type: model.SafetyCredential, Weight: 40},
			{Type: model.CapabilityCredential, Weight: 30},
		},
		Factors: []Factor{
			{Name: CredentialVerificationFactor, Score: 0, Weight: 70, Description: "Verification status of the agent's credentials."},
			{Name: "Historical Performance", Score: 65, Weight: 15, Description: "Track record of the agent."},
			{Name: "Transparency", Score: 80, Weight: 15, Description: "Openness about capabilities and limitations."},
		},
	}
}

// Knows reports whether the credential type is weighted by the model.
func (m Model) Knows(credentialType model.CredentialType) bool {
	for _, credential := range m.Credentials {
		if credential.Type == credentialType {
			return true
		}
	}
	return false
}

func (m Model) Types() []model.CredentialType {
	types := make([]model.CredentialType, 0, len(m.Credentials))
	for _, credential := range m.Credentials {
		types = append(types, credential.Type)
	}
	return types
}

/**
* Derives one fact per known credential type, verified when at least one verified credential of the type exists.
* Credentials of types the model does not know are ignored.
 */
func (m Model) Facts(credentials []model.Credential) []CredentialFact {
	verified := map[model.CredentialType]bool{}
	for _, credential := range credentials {
		if credential.Verified {
			verified[credential.Type] = true
		}
	}
	facts := make([]CredentialFact, 0, len(m.Credentials))
	for _, weighted := range m.Credentials {
		facts = append(facts, CredentialFact{Type: weighted.Type, Weight: weighted.Weight, Verified: verified[weighted.Type]})
	}
	return facts
}

func (m Model) Evaluate(credentials []model.Credential) Result {
	return Calculate(m.Facts(credentials), m.Factors)
}

// Project evaluates the credentials as if an additional verified credential of the given type was issued.
func (m Model) Project(credentials []model.Credential, credentialType model.CredentialType) Result {
	projected := make([]model.Credential, 0, len(credentials)+1)
	projected = append(projected, credentials...)
	projected = append(projected, model.Credential{Type: credentialType, Verified: true})
	return m.Evaluate(projected)
}

// Validate logs weight sets that do not sum up to 100. Such models still work, results get clamped.
func (m Model) Validate() bool {
	valid := true
	credentialWeights := 0.0
	for _, credential := range m.Credentials {
		credentialWeights += credential.Weight
	}
	if credentialWeights != 100 {
		logger.Warnf("Credential weights sum up to %v instead of 100.", credentialWeights)
		valid = false
	}
	factorWeights := 0.0
	for _, factor := range m.Factors {
		factorWeights += factor.Weight
	}
	if factorWeights != 100 {
		logger.Warnf("Factor weights sum up to %v instead of 100.", factorWeights)
		valid = false
	}
	return valid
}
