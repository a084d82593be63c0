package lifecycle

import (
	"net/http"

	client "github.com/fiware/agent-trust-registry/http"
	"github.com/fiware/agent-trust-registry/model"
	"github.com/fiware/agent-trust-registry/repository"
	"github.com/gin-gonic/gin"
)

type approval struct {
	// absent scores are calculated by the weighted model
	Score *int `json:"score"`
}

type rejection struct {
	Reason string `json:"reason"`
}

// RequestController exposes the lifecycle of credential requests over http.
type RequestController struct {
	controller *Controller
}

func NewRequestController(controller *Controller) *RequestController {
	return &RequestController{controller: controller}
}

func (rc *RequestController) RegisterRoutes(router gin.IRouter) {
	router.POST("/requests", rc.SubmitRequest)
	router.GET("/requests", rc.GetRequests)
	router.GET("/requests/:id", rc.GetRequestById)
	router.GET("/requests/:id/preview", rc.PreviewApproval)
	router.POST("/requests/:id/approve", rc.ApproveRequest)
	router.POST("/requests/:id/reject", rc.RejectRequest)
}

func (rc *RequestController) SubmitRequest(c *gin.Context) {
	var submission Submission
	if !client.ReadBody(c, &submission, false) {
		return
	}
	request, err := rc.controller.SubmitRequest(c.Request.Context(), submission)
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Failed to submit request."))
		return
	}
	c.AbortWithStatusJSON(http.StatusCreated, request)
}

func (rc *RequestController) GetRequests(c *gin.Context) {
	limit, offset, ok := client.PageParams(c)
	if !ok {
		return
	}
	query := repository.RequestQuery{
		AgentId: c.Query("agentId"),
		Status:  model.RequestStatus(c.Query("status")),
		Type:    model.CredentialType(c.Query("type")),
	}
	requests, err := rc.controller.GetRequests(c.Request.Context(), query, limit, offset)
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Unable to get requests from repo"))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, requests)
}

func (rc *RequestController) GetRequestById(c *gin.Context) {
	request, err := rc.controller.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Request not found."))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, request)
}

func (rc *RequestController) PreviewApproval(c *gin.Context) {
	preview, err := rc.controller.PreviewApproval(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Unable to preview the approval."))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, preview)
}

func (rc *RequestController) ApproveRequest(c *gin.Context) {
	var body approval
	if !client.ReadBody(c, &body, true) {
		return
	}
	var credential model.Credential
	var err error
	if body.Score == nil {
		credential, err = rc.controller.ApproveRequestWithModel(c.Request.Context(), c.Param("id"))
	} else {
		credential, err = rc.controller.ApproveRequest(c.Request.Context(), c.Param("id"), *body.Score)
	}
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Failed to approve request."))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, credential)
}

func (rc *RequestController) RejectRequest(c *gin.Context) {
	var body rejection
	if !client.ReadBody(c, &body, true) {
		return
	}
	err := rc.controller.RejectRequest(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Failed to reject request."))
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}
