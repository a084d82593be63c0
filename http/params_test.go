package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func testContext(method string, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	return c, recorder
}

func TestPageParams(t *testing.T) {
	type test struct {
		testName       string
		query          string
		expectedLimit  int
		expectedOffset int
		expectedOk     bool
	}

	tests := []test{
		{"Use the defaults.", "", defaultLimit, 0, true},
		{"Use the given values.", "?limit=5&offset=10", 5, 10, true},
		{"Accept the max limit.", "?limit=1000", maxLimit, 0, true},
		{"Reject limits above max.", "?limit=1001", 0, 0, false},
		{"Reject negative limits.", "?limit=-1", 0, 0, false},
		{"Reject a zero limit.", "?limit=0", 0, 0, false},
		{"Reject negative offsets.", "?offset=-1", 0, 0, false},
		{"Reject non-numeric values.", "?limit=ten", 0, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			log.Info("TestPageParams +++++++++++++++++ Running test: ", tc.testName)
			c, recorder := testContext(http.MethodGet, "/agents"+tc.query, "")
			limit, offset, ok := PageParams(c)
			if ok != tc.expectedOk {
				t.Errorf("%s: Unexpected result. Expected: %v, Actual: %v", tc.testName, tc.expectedOk, ok)
				return
			}
			if !ok {
				if recorder.Code != http.StatusBadRequest {
					t.Errorf("%s: Invalid params should be answered with bad request. Actual: %v", tc.testName, recorder.Code)
				}
				return
			}
			if limit != tc.expectedLimit || offset != tc.expectedOffset {
				t.Errorf("%s: Unexpected page. Expected: %v/%v, Actual: %v/%v", tc.testName, tc.expectedLimit, tc.expectedOffset, limit, offset)
			}
		})
	}
}

func TestReadBody(t *testing.T) {
	type test struct {
		testName   string
		body       string
		optional   bool
		expectedOk bool
	}

	tests := []test{
		{"Read a valid body.", `{"name":"agent"}`, false, true},
		{"Accept an empty optional body.", "", true, true},
		{"Reject an empty required body.", "", false, false},
		{"Reject invalid json.", `{"name":`, true, false},
	}

	for _, tc := range tests {
		t.Run(tc.testName, func(t *testing.T) {
			log.Info("TestReadBody +++++++++++++++++ Running test: ", tc.testName)
			c, recorder := testContext(http.MethodPost, "/agents", tc.body)
			var target map[string]string
			ok := ReadBody(c, &target, tc.optional)
			if ok != tc.expectedOk {
				t.Errorf("%s: Unexpected result. Expected: %v, Actual: %v", tc.testName, tc.expectedOk, ok)
			}
			if !ok && recorder.Code != http.StatusBadRequest {
				t.Errorf("%s: Unreadable bodies should be answered with bad request. Actual: %v", tc.testName, recorder.Code)
			}
		})
	}
}

type pinger struct {
	err error
}

func (p pinger) Ping(ctx context.Context) error {
	return p.err
}

func TestHealthReq(t *testing.T) {
	if err := RegisterCheck("optional-cache", pinger{err: errors.New("cache_down")}, true); err != nil {
		t.Fatalf("Was not able to register check. Err: %v", err)
	}
	c, recorder := testContext(http.MethodGet, "/health", "")
	HealthReq(c)
	if recorder.Code != http.StatusOK {
		t.Errorf("Optional checks should not make the service unavailable. Actual: %v", recorder.Code)
	}

	if err := RegisterCheck("database", pinger{err: errors.New("db_down")}, false); err != nil {
		t.Fatalf("Was not able to register check. Err: %v", err)
	}
	c, recorder = testContext(http.MethodGet, "/health", "")
	HealthReq(c)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("Failing required checks should make the service unavailable. Actual: %v", recorder.Code)
	}
}
