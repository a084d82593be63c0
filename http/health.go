package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellofresh/health-go/v5"
)

const checkTimeout = 5 * time.Second

var healthCheck *health.Health

func init() {
	healthCheck, _ = health.New(health.WithComponent(health.Component{
		Name: "agent-trust-registry",
	}))
}

// Pinger is anything that can report its own availability, e.g. the database or the did cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterCheck adds the pinger to the health report. Optional checks only degrade the status.
func RegisterCheck(name string, pinger Pinger, optional bool) error {
	return healthCheck.Register(health.Config{
		Name:      name,
		Timeout:   checkTimeout,
		SkipOnErr: optional,
		Check:     pinger.Ping,
	})
}

func HealthReq(c *gin.Context) {
	checkResult := healthCheck.Measure(c.Request.Context())
	if checkResult.Status == health.StatusUnavailable {
		logger.Warnf("Health check failed: %v", checkResult.Failures)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, checkResult)
	} else {
		c.AbortWithStatusJSON(http.StatusOK, checkResult)
	}
}
