package registry

import (
	"net/http"

	client "github.com/fiware/agent-trust-registry/http"
	"github.com/fiware/agent-trust-registry/model"
	"github.com/fiware/agent-trust-registry/score"
	"github.com/gin-gonic/gin"
)

// Input of the trust score calculator. Missing parts are taken from the configured model.
type trustScoreInput struct {
	Credentials []score.CredentialFact `json:"credentials"`
	Factors     []score.Factor         `json:"factors"`
}

type VerificationController struct {
	service *Service
}

func NewVerificationController(service *Service) *VerificationController {
	return &VerificationController{service: service}
}

func (vc *VerificationController) RegisterRoutes(router gin.IRouter) {
	router.GET("/verify/:did", vc.VerifyAgent)
	router.POST("/trustscore", vc.CalculateTrustScore)
}

func (vc *VerificationController) VerifyAgent(c *gin.Context) {
	verification, err := vc.service.Verify(c.Request.Context(), c.Param("did"))
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Unable to verify the agent."))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, verification)
}

func (vc *VerificationController) CalculateTrustScore(c *gin.Context) {
	var input trustScoreInput
	if !client.ReadBody(c, &input, true) {
		return
	}
	scoreModel := vc.service.ScoreModel()
	if input.Credentials == nil {
		input.Credentials = scoreModel.Facts(nil)
	}
	if input.Factors == nil {
		input.Factors = scoreModel.Factors
	}
	c.AbortWithStatusJSON(http.StatusOK, score.Calculate(input.Credentials, input.Factors))
}
