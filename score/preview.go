package score

import "github.com/fiware/agent-trust-registry/model"

// bumps used by the quick estimate
var previewBumps = map[model.CredentialType]int{
	model.SafetyCredential:     30,
	model.CreatorCredential:    15,
	model.CapabilityCredential: 20,
}

/**
* Quick estimate of the score an agent would have after receiving a credential of the given type.
* This is a shortcut for issuers to preview an approval and not the weighted model: it adds a fixed bump
* per type to the current score, capped at 100. Unknown types do not change the score.
 */
func PreviewScore(baseScore int, credentialType model.CredentialType) int {
	projected := baseScore + previewBumps[credentialType]
	if projected > MaxScore {
		return MaxScore
	}
	if projected < MinScore {
		return MinScore
	}
	return projected
}

type Rating string

const (
	Excellent Rating = "EXCELLENT"
	Good      Rating = "GOOD"
	Moderate  Rating = "MODERATE"
	Low       Rating = "LOW"
)

func Rate(score int) Rating {
	switch {
	case score >= 90:
		return Excellent
	case score >= 70:
		return Good
	case score >= 50:
		return Moderate
	default:
		return Low
	}
}
