package http

import (
	"net/http"
	"time"

	"github.com/fiware/agent-trust-registry/logging"
)

var logger = logging.Log()

const defaultTimeout = 30 * time.Second

/**
* Global http client
 */
var globalHttpClient Client = &http.Client{Timeout: defaultTimeout}

func HttpClient() Client {
	return globalHttpClient
}

// Interface to the http-client
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}
