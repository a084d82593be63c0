package score

import (
	"math"

	"github.com/fiware/agent-trust-registry/model"
)

// name of the factor that carries the credential sub-score
const CredentialVerificationFactor = "Credential Verification"

const (
	MinScore = 0
	MaxScore = 100
)

// CredentialFact states whether a credential type is verified for an agent and how much it weighs.
type CredentialFact struct {
	Type     model.CredentialType `json:"type" yaml:"type"`
	Verified bool                 `json:"verified" yaml:"-"`
	Weight   float64              `json:"weight" yaml:"weight"`
}

type Factor struct {
	Name        string  `json:"name" yaml:"name"`
	Score       float64 `json:"score" yaml:"score"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Description string  `json:"description,omitempty" yaml:"description"`
}

type Result struct {
	Score           int              `json:"score"`
	CredentialScore float64          `json:"credentialScore"`
	Credentials     []CredentialFact `json:"credentials"`
	Factors         []Factor         `json:"factors"`
}

/**
* Sum of the weights of all verified credentials. Weights are expected to sum up to 100, the result is
* clamped to [0,100] in case they do not.
 */
func CredentialScore(credentials []CredentialFact) float64 {
	total := 0.0
	for _, credential := range credentials {
		if credential.Verified {
			total += clamp(credential.Weight)
		}
	}
	return clamp(total)
}

/**
* Calculates the overall trust score. The credential sub-score replaces the score of the
* "Credential Verification" factor, every factor contributes score*weight/100.
 */
func Calculate(credentials []CredentialFact, factors []Factor) Result {
	credentialScore := CredentialScore(credentials)

	updatedFactors := make([]Factor, 0, len(factors))
	for _, factor := range factors {
		if factor.Name == CredentialVerificationFactor {
			factor.Score = credentialScore
		}
		updatedFactors = append(updatedFactors, factor)
	}
	return Result{
		Score:           Overall(updatedFactors),
		CredentialScore: credentialScore,
		Credentials:     credentials,
		Factors:         updatedFactors,
	}
}

// Overall weighted score of the given factors, rounded half-up. Out-of-range input is clamped, never rejected.
func Overall(factors []Factor) int {
	total := 0.0
	for _, factor := range factors {
		total += clamp(factor.Score) * clamp(factor.Weight) / 100
	}
	return int(clamp(math.Floor(total + 0.5)))
}

func clamp(value float64) float64 {
	if math.IsNaN(value) || value < MinScore {
		return MinScore
	}
	if value > MaxScore {
		return MaxScore
	}
	return value
}
