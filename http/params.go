package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/fiware/agent-trust-registry/model"
	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// PageParams reads limit and offset from the query. Limits have to be within 1 and maxLimit, invalid values are
// answered with a bad request.
func PageParams(c *gin.Context) (limit int, offset int, ok bool) {
	query := c.Request.URL.Query()
	limitParam := query.Get("limit")
	if limitParam == "" {
		limitParam = strconv.Itoa(defaultLimit)
	}
	offsetParam := query.Get("offset")
	if offsetParam == "" {
		offsetParam = "0"
	}
	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit < 1 || limit > maxLimit {
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "InvalidParameter", Status: http.StatusBadRequest, Title: "Invalid query parameter", Detail: fmt.Sprintf("Limit is not a valid number: %s", limitParam)})
		return limit, offset, false
	}
	offset, err = strconv.Atoi(offsetParam)
	if err != nil || offset < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "InvalidParameter", Status: http.StatusBadRequest, Title: "Invalid query parameter", Detail: fmt.Sprintf("Offset is not a valid number: %s", offsetParam)})
		return limit, offset, false
	}
	return limit, offset, true
}

// ReadBody unmarshals the json body into the target. Optional bodies may be empty.
func ReadBody(c *gin.Context, target interface{}, optional bool) bool {
	bodyData, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Debugf("Was not able to read the body, return error %v.", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to read body", Detail: err.Error()})
		return false
	}
	if optional && len(bodyData) == 0 {
		return true
	}
	err = json.Unmarshal(bodyData, target)
	if err != nil {
		logger.Debugf("Was not able to unmarshal request body: %s", string(bodyData))
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to unmarshal body.", Detail: err.Error()})
		return false
	}
	return true
}
