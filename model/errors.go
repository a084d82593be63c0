package model

import (
	"errors"
	"fmt"
	"net/http"
)

// error returned by outgoing http calls, e.g. towards the did registry

type HttpError struct {
	Status    int
	Message   string
	RootError error
}

func (err *HttpError) Error() string {
	return err.Message
}

func (err *HttpError) GetRoot() error {
	return err.RootError
}

type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// ValidationError signals malformed input, e.g. an unknown credential type.
type ValidationError struct {
	Field   string
	Message string
}

func (err *ValidationError) Error() string {
	if err.Field == "" {
		return err.Message
	}
	return fmt.Sprintf("%s: %s", err.Field, err.Message)
}

// InvalidStateError signals a transition that is not allowed from the current status of a request.
type InvalidStateError struct {
	RequestId string
	Status    RequestStatus
	Target    RequestStatus
}

func (err *InvalidStateError) Error() string {
	if err.Status == "" {
		return fmt.Sprintf("Request %s is no longer %s, cannot move it to %s.", err.RequestId, StatusPending, err.Target)
	}
	return fmt.Sprintf("Request %s is %s, cannot move it to %s.", err.RequestId, err.Status, err.Target)
}

type NotFoundError struct {
	Kind string
	Id   string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found.", err.Kind, err.Id)
}

// PersistenceError signals a failed unit of work. Nothing of the operation was applied.
type PersistenceError struct {
	Message   string
	RootError error
}

func (err *PersistenceError) Error() string {
	if err.RootError == nil {
		return err.Message
	}
	return fmt.Sprintf("%s Err: %v", err.Message, err.RootError)
}

func (err *PersistenceError) Unwrap() error {
	return err.RootError
}

// UpstreamError signals a failure of the did registry.
type UpstreamError struct {
	Message   string
	RootError error
}

func (err *UpstreamError) Error() string {
	if err.RootError == nil {
		return err.Message
	}
	return fmt.Sprintf("%s Err: %v", err.Message, err.RootError)
}

func (err *UpstreamError) Unwrap() error {
	return err.RootError
}

// StatusOf maps the error to the http status reported to the caller.
func StatusOf(err error) int {
	var validationErr *ValidationError
	var stateErr *InvalidStateError
	var notFoundErr *NotFoundError
	var upstreamErr *UpstreamError
	var httpErr *HttpError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &stateErr):
		return http.StatusConflict
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway
	case errors.As(err, &httpErr):
		return httpErr.Status
	default:
		return http.StatusInternalServerError
	}
}

func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusConflict:
		return "InvalidState"
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusBadGateway:
		return "UpstreamError"
	default:
		return "PersistenceError"
	}
}

func NewProblem(err error, title string) ProblemDetails {
	status := StatusOf(err)
	return ProblemDetails{Type: problemType(status), Title: title, Status: status, Detail: err.Error()}
}
