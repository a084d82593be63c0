package config

import (
	"fmt"
	"os"

	"github.com/fiware/agent-trust-registry/model"
	"github.com/fiware/agent-trust-registry/score"
	"gopkg.in/yaml.v2"
)

/**
* Loads the weights of the score model from a yaml file. Without a file, the default model is used.
*
* credentials:
*   - type: Safety
*     weight: 40
* factors:
*   - name: Credential Verification
*     weight: 70
 */
func LoadScoreModel(path string) (score.Model, error) {
	if path == "" {
		return score.DefaultModel(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return score.Model{}, err
	}
	defer f.Close()

	var scoreModel score.Model
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&scoreModel); err != nil {
		return score.Model{}, err
	}
	if len(scoreModel.Credentials) == 0 {
		return score.Model{}, fmt.Errorf("score model %s does not weight any credential type", path)
	}
	for _, credential := range scoreModel.Credentials {
		if credential.Type == model.CredentialType("") {
			return score.Model{}, fmt.Errorf("score model %s contains a credential without type", path)
		}
	}
	if !scoreModel.Validate() {
		logger.Warnf("Score model %s is not normalized, scores will be clamped.", path)
	}
	logger.Infof("Loaded score model from %s.", path)
	return scoreModel, nil
}
