package jsonrpc

import (
	"encoding/json"

	"github.com/agentvault/agentvault-go/pkg/errors"
)

/*
Response is a JSON-RPC 2.0 response envelope as produced by a server:
exactly one of Result and Error is set, and the id echoes the request's.
*/
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      any              `json:"id"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

// NewResponse wraps a result for the given request id.
func NewResponse(id any, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewErrorResponse wraps an error for the given request id.
func NewErrorResponse(id any, rpcErr *errors.RpcError) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: rpcErr}
}

/*
RawResponse is the client-side view of a response: the result is kept raw
so the caller can decode it into the method's own result type after the
envelope has been checked.
*/
type RawResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  json.RawMessage  `json:"result"`
	Error   *errors.RpcError `json:"error"`
}
