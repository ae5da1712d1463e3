// Package main provides a TCP SQL server for a mydb database.
package main

import (
	"encoding/json"

	"github.com/nickyhof/mydb"
)

// Request represents a SQL query from the client. Lines starting with '{' are
// decoded as a Request; any other line is the query itself.
type Request struct {
	Query string `json:"query"`
}

// Response represents the server's response to a query.
type Response struct {
	Success bool            `json:"success"`
	Status  *int32          `json:"status,omitempty"` // engine status, absent if the engine was not reached
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"` // "rows", "json", "text", "none" or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// AuthResponse contains the result of a successful AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// Payload types reported in Response.Type.
const (
	TypeRows = "rows"
	TypeJSON = "json"
	TypeText = "text"
	TypeNone = "none"
	TypeAuth = "auth"
)

// NewResultResponse builds the response for an engine result. JSON payloads
// are embedded as they are; anything else, including JSON that is not valid
// UTF-8, is sent as its decoded text in a JSON string.
func NewResultResponse(result *mydb.Result, err error) Response {
	status := result.Status()
	resp := Response{
		Success: err == nil,
		Status:  &status,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	switch {
	case result.NoContent():
		resp.Type = TypeNone
	case result.Valid() && !result.Lossy():
		resp.Result = json.RawMessage(result.Bytes())
		resp.Type = TypeJSON
		if _, rowsErr := result.Rows(); rowsErr == nil {
			resp.Type = TypeRows
		}
	default:
		resp.Type = TypeText
		resp.Result, _ = json.Marshal(result.Text())
	}
	return resp
}

// ErrorResponse builds a response for a failure that never reached the
// engine.
func ErrorResponse(responseType string, err error) Response {
	return Response{
		Success: false,
		Type:    responseType,
		Error:   err.Error(),
	}
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}
