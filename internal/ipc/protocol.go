package ipc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/1broseidon/winquery/internal/backend"
)

// Response status values.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request is one backend command sent from client to server. Requests on a
// connection are accepted in order; their responses carry the request ID
// and may arrive out of order when a command blocks.
type Request struct {
	ID      uint64   `json:"id"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response is the outcome of one Request.
type Response struct {
	ID     uint64          `json:"id"`
	Status string          `json:"status"` // "OK" or "ERROR"
	Result *backend.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   int             `json:"code,omitempty"`
}

// NewOKResponse creates a successful response. Blank results are omitted.
func NewOKResponse(id uint64, res backend.Result) *Response {
	resp := &Response{ID: id, Status: StatusOK}
	if res.Int != nil || res.Text != nil || res.IDs != nil || res.Rect != nil {
		resp.Result = &res
	}
	return resp
}

// NewErrorResponse creates an error response. The code of a backend
// CommandError is preserved.
func NewErrorResponse(id uint64, err error) *Response {
	resp := &Response{ID: id, Status: StatusError, Error: err.Error()}
	var ce *backend.CommandError
	if errors.As(err, &ce) {
		resp.Code = ce.Code
		resp.Error = ce.Message
	}
	return resp
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, errors.New("request has no command")
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// result converts r back into what the backend returned.
func (r *Response) result(command string) (backend.Result, error) {
	if r.Status != StatusOK {
		if r.Code != 0 {
			return backend.Result{}, &backend.CommandError{Command: command, Code: r.Code, Message: r.Error}
		}
		return backend.Result{}, fmt.Errorf("server error: %s", r.Error)
	}
	if r.Result == nil {
		return backend.Result{}, nil
	}
	return *r.Result, nil
}
