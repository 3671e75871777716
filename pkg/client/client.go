package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
	"github.com/agentvault/agentvault-go/pkg/jsonrpc"
	"github.com/agentvault/agentvault-go/pkg/keys"
)

// DefaultTimeout bounds a single JSON-RPC call when the caller supplies no
// deadline of its own.  Streaming reads are exempt.
const DefaultTimeout = 30 * time.Second

/*
AgentClient talks to one remote agent over JSON-RPC, authenticating per
the agent card's declared schemes and resolving secrets through a key
manager.  It is safe for concurrent use.
*/
type AgentClient struct {
	Card a2a.AgentCard

	keyManager *keys.Manager
	httpClient *http.Client
	ownsHTTP   bool

	tokens tokenCache
}

// Option configures an AgentClient.
type Option func(*AgentClient)

// WithHTTPClient makes the client borrow an existing HTTP client.  A
// borrowed client is never closed by Close.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(ac *AgentClient) {
		ac.httpClient = httpClient
		ac.ownsHTTP = false
	}
}

// WithTimeout overrides the default per-call timeout.  Only applies to the
// client's own HTTP client, not a borrowed one.
func WithTimeout(d time.Duration) Option {
	return func(ac *AgentClient) {
		if ac.ownsHTTP {
			ac.httpClient.Timeout = d
		}
	}
}

// NewAgentClient builds a client for the agent described by the card.
func NewAgentClient(card a2a.AgentCard, keyManager *keys.Manager, opts ...Option) *AgentClient {
	ac := &AgentClient{
		Card:       card,
		keyManager: keyManager,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		ownsHTTP:   true,
	}

	for _, opt := range opts {
		opt(ac)
	}

	return ac
}

/*
Close releases transport resources.  Owned HTTP clients have their idle
connections closed; borrowed clients are left untouched.
*/
func (ac *AgentClient) Close() {
	if ac.ownsHTTP {
		ac.httpClient.CloseIdleConnections()
	}
}

/*
call performs one JSON-RPC round trip: build the envelope, attach auth
headers, POST, and decode the result into out (when out is non-nil).
*/
func (ac *AgentClient) call(ctx context.Context, op, method string, params, out any) error {
	req, err := jsonrpc.NewRequest(fmt.Sprintf("req-%s-%s", op, uuid.NewString()), method, params)

	if err != nil {
		return errors.Messagef("failed to encode %s params: %v", method, err)
	}

	raw, err := ac.roundTrip(ctx, ac.httpClient, req, "application/json")

	if err != nil {
		return err
	}

	defer raw.Body.Close()

	body, err := io.ReadAll(raw.Body)

	if err != nil {
		return errors.Connectionf("failed to read response from %s: %v", ac.Card.URL, err)
	}

	if raw.StatusCode < 200 || raw.StatusCode > 299 {
		return remoteHTTPError(raw.StatusCode, body)
	}

	return decodeEnvelope(body, out)
}

/*
roundTrip sends one envelope and hands back the raw HTTP response.  The
accept header distinguishes plain calls from stream subscriptions.
*/
func (ac *AgentClient) roundTrip(ctx context.Context, httpClient *http.Client, req *jsonrpc.Request, accept string) (*http.Response, error) {
	payload, err := json.Marshal(req)

	if err != nil {
		return nil, errors.Messagef("failed to encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.Card.URL, bytes.NewReader(payload))

	if err != nil {
		return nil, errors.Connectionf("failed to build request for %s: %v", ac.Card.URL, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)

	headers, err := ac.authHeaders(ctx)

	if err != nil {
		return nil, err
	}

	for name, value := range headers {
		httpReq.Header.Set(name, value)
	}

	log.Debug("sending request", "agent", ac.Card.Name, "method", req.Method, "url", ac.Card.URL)

	resp, err := httpClient.Do(httpReq)

	if err != nil {
		return nil, transportError(ac.Card.URL, err)
	}

	return resp, nil
}

/*
decodeEnvelope validates a JSON-RPC response body and unmarshals its
result.  A body that parses but carries neither result nor error is a
protocol violation.
*/
func decodeEnvelope(body []byte, out any) error {
	var resp jsonrpc.RawResponse

	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Messagef("response is not valid JSON-RPC: %v", err)
	}

	if resp.JSONRPC != jsonrpc.Version {
		return errors.Messagef("response declares protocol version %q", resp.JSONRPC)
	}

	if resp.Error != nil {
		return &errors.RemoteAgentError{
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
			Data:    resp.Error.Data,
		}
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return errors.Messagef("response carries neither result nor error")
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Result, out); err != nil {
		return errors.Messagef("failed to decode result: %v", err)
	}

	return nil
}

// transportError classifies an http.Client failure into the timeout or
// connection error kind.
func transportError(target string, err error) error {
	var urlErr *url.Error

	if stderrors.As(err, &urlErr) && urlErr.Timeout() {
		return errors.Timeoutf("request to %s timed out: %v", target, err)
	}

	if ctxErr := contextCause(err); ctxErr != nil {
		return ctxErr
	}

	return errors.Connectionf("request to %s failed: %v", target, err)
}

func contextCause(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeoutf("request deadline exceeded: %v", err)
	}

	return nil
}

// remoteHTTPError surfaces a non-2xx HTTP reply as a remote agent error
// carrying the status code and a body excerpt.
func remoteHTTPError(status int, body []byte) error {
	const excerpt = 200

	msg := string(body)

	if len(msg) > excerpt {
		msg = msg[:excerpt]
	}

	return &errors.RemoteAgentError{
		Code:    status,
		Message: fmt.Sprintf("HTTP %d: %s", status, msg),
	}
}
