package client

import (
	"errors"
	"fmt"
)

var ErrSaveRejected = errors.New("client: save rejected")

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// ShapeError is a 2xx answer whose body does not have the expected shape.
type ShapeError struct {
	Path string
	Err  error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %v", e.Path, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// SocketError is a failure the server reports on the socket instead of a
// reply.
type SocketError struct {
	Message string `json:"message"`
}

func (e *SocketError) Error() string {
	return "server: " + e.Message
}
