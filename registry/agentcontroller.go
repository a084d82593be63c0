package registry

import (
	"fmt"
	"net/http"
	"strconv"

	client "github.com/fiware/agent-trust-registry/http"
	"github.com/fiware/agent-trust-registry/logging"
	"github.com/fiware/agent-trust-registry/model"
	"github.com/fiware/agent-trust-registry/repository"
	"github.com/gin-gonic/gin"
)

type AgentController struct {
	service *Service
}

func NewAgentController(service *Service) *AgentController {
	return &AgentController{service: service}
}

func (ac *AgentController) RegisterRoutes(router gin.IRouter) {
	router.POST("/agents", ac.RegisterAgent)
	router.GET("/agents", ac.GetAgents)
	router.GET("/agents/:id", ac.GetAgentById)
	router.GET("/agents/:id/credentials", ac.GetAgentCredentials)
	router.GET("/agents/:id/timeline", ac.GetTimeline)
	router.GET("/credentials", ac.GetCredentials)
	router.GET("/stats", ac.GetStats)
}

func (ac *AgentController) RegisterAgent(c *gin.Context) {
	var registration Registration
	if !client.ReadBody(c, &registration, false) {
		return
	}
	agent, err := ac.service.RegisterAgent(c.Request.Context(), registration)
	if err != nil {
		logger.Debugf("Was not able to register agent %s.", logging.PrettyPrintObject(registration))
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Failed to register agent."))
		return
	}
	c.AbortWithStatusJSON(http.StatusCreated, agent)
}

func (ac *AgentController) GetAgents(c *gin.Context) {
	limit, offset, ok := client.PageParams(c)
	if !ok {
		return
	}
	query, ok := agentQueryParams(c)
	if !ok {
		return
	}
	agents, err := ac.service.GetAgents(c.Request.Context(), query, limit, offset)
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Unable to get agents from repo"))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, agents)
}

// agentQueryParams reads search, verified and sort. Unknown values are answered with a bad request.
func agentQueryParams(c *gin.Context) (query repository.AgentQuery, ok bool) {
	params := c.Request.URL.Query()
	query.Search = params.Get("search")

	if verifiedParam := params.Get("verified"); verifiedParam != "" {
		verified, err := strconv.ParseBool(verifiedParam)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "InvalidParameter", Status: http.StatusBadRequest, Title: "Invalid query parameter", Detail: fmt.Sprintf("Verified is not a boolean: %s", verifiedParam)})
			return query, false
		}
		query.Verified = &verified
	}

	switch sort := repository.AgentSort(params.Get("sort")); sort {
	case "", repository.SortByTrustScore, repository.SortByName, repository.SortByDate:
		query.Sort = sort
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "InvalidParameter", Status: http.StatusBadRequest, Title: "Invalid query parameter", Detail: fmt.Sprintf("Unknown sort: %s", sort)})
		return query, false
	}
	return query, true
}

func (ac *AgentController) GetAgentById(c *gin.Context) {
	agent, err := ac.service.GetAgent(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Agent not found."))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, agent)
}

func (ac *AgentController) GetAgentCredentials(c *gin.Context) {
	credentials, err := ac.service.GetAgentCredentials(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Unable to get credentials of the agent."))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, credentials)
}

func (ac *AgentController) GetCredentials(c *gin.Context) {
	limit, offset, ok := client.PageParams(c)
	if !ok {
		return
	}
	credentials, err := ac.service.GetCredentials(c.Request.Context(), limit, offset)
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Unable to get credentials from repo"))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, credentials)
}

func (ac *AgentController) GetTimeline(c *gin.Context) {
	events, err := ac.service.GetTimeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Unable to get the timeline of the agent."))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, events)
}

func (ac *AgentController) GetStats(c *gin.Context) {
	stats, err := ac.service.Stats(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(model.StatusOf(err), model.NewProblem(err, "Unable to get stats."))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, stats)
}
