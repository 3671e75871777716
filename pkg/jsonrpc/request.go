package jsonrpc

import "encoding/json"

// Version is the only protocol version this package speaks.
const Version = "2.0"

/*
Request is a JSON-RPC 2.0 request envelope.  The id is kept raw so that
string, number and null ids round-trip untouched; a request without an id
is a notification.
*/
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"` // string | number | null
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a request with a string id and marshalled params.
func NewRequest(id, method string, params any) (*Request, error) {
	rawID, err := json.Marshal(id)

	if err != nil {
		return nil, err
	}

	rawParams, err := json.Marshal(params)

	if err != nil {
		return nil, err
	}

	return &Request{
		JSONRPC: Version,
		ID:      rawID,
		Method:  method,
		Params:  rawParams,
	}, nil
}

// IsNotification reports whether the request carries no id and therefore
// expects no response.
func (req *Request) IsNotification() bool {
	return len(req.ID) == 0 || string(req.ID) == "null"
}
