package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
	"github.com/agentvault/agentvault-go/pkg/jsonrpc"
	"github.com/agentvault/agentvault-go/pkg/stores"
)

/*
HandlerFunc processes the raw params of one JSON-RPC method call and
returns a result or an *errors.RpcError.  Returning (nil, nil) produces a
null result.
*/
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError)

/*
MethodProvider lets a component contribute a batch of method handlers to a
server, keyed by method name.
*/
type MethodProvider interface {
	Methods() map[string]HandlerFunc
}

/*
Server is the JSON-RPC endpoint of one agent.  It owns the method table
and the task store, serves the protocol's task lifecycle methods out of
the box, and accepts additional methods via Register.

The zero ServeHTTP contract: malformed JSON answers -32700 with a null id,
envelope violations answer -32600, an unknown method -32601, and handler
errors pass through with their own codes.  All JSON-RPC errors ship with
HTTP 200 except internal errors, which use HTTP 500.
*/
type Server struct {
	card  a2a.AgentCard
	store stores.TaskStore

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewServer builds a server for the given card, backed by the given task
// store, with the task lifecycle methods pre-registered.
func NewServer(card a2a.AgentCard, store stores.TaskStore) *Server {
	srv := &Server{
		card:     card,
		store:    store,
		handlers: make(map[string]HandlerFunc),
	}

	srv.Register(a2a.MethodTaskSend, srv.handleTaskSend)
	srv.Register(a2a.MethodTaskGet, srv.handleTaskGet)
	srv.Register(a2a.MethodTaskCancel, srv.handleTaskCancel)

	return srv
}

// Store exposes the server's task store so agent logic can drive task
// state from outside the request path.
func (srv *Server) Store() stores.TaskStore {
	return srv.store
}

// Register binds a method name to a handler, replacing (with a warning)
// any handler already bound to that name.
func (srv *Server) Register(method string, handler HandlerFunc) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if _, exists := srv.handlers[method]; exists {
		log.Warn("overriding existing method handler", "method", method)
	}

	srv.handlers[method] = handler
}

// RegisterProvider registers every method a provider contributes.
func (srv *Server) RegisterProvider(provider MethodProvider) {
	for method, handler := range provider.Methods() {
		srv.Register(method, handler)
	}
}

// CardHandler serves the agent card as JSON, suitable for mounting at a
// well-known discovery path.
func (srv *Server) CardHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(srv.card); err != nil {
			log.Error("failed to serve agent card", "error", err)
		}
	})
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST supported", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)

	if err != nil {
		respond(w, jsonrpc.NewErrorResponse(nil, errors.ErrParseError))
		return
	}

	var req jsonrpc.Request

	if err := json.Unmarshal(body, &req); err != nil {
		// A type mismatch (say, a numeric method) is still valid JSON: the
		// envelope is what is broken, and the id decoded alongside the
		// mismatch must echo back.
		var typeErr *json.UnmarshalTypeError

		if stderrors.As(err, &typeErr) {
			respond(w, jsonrpc.NewErrorResponse(rawID(req.ID), errors.ErrInvalidRequest))
			return
		}

		respond(w, jsonrpc.NewErrorResponse(nil, errors.ErrParseError))
		return
	}

	if req.JSONRPC != jsonrpc.Version || req.Method == "" {
		respond(w, jsonrpc.NewErrorResponse(rawID(req.ID), errors.ErrInvalidRequest))
		return
	}

	// Stream subscriptions take over the connection instead of answering
	// with a single envelope.
	if req.Method == a2a.MethodTaskSubscribe {
		srv.handleSubscribe(w, r, &req)
		return
	}

	resp := srv.dispatch(r.Context(), &req)

	// A notification expects no reply.
	if req.IsNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respond(w, resp)
}

/*
dispatch looks up and runs the handler for one request.  A handler panic
is contained and reported as an internal error.
*/
func (srv *Server) dispatch(ctx context.Context, req *jsonrpc.Request) (resp *jsonrpc.Response) {
	id := rawID(req.ID)

	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error("handler panicked", "method", req.Method, "panic", recovered)
			resp = jsonrpc.NewErrorResponse(id, errors.ErrInternal)
		}
	}()

	srv.mu.RLock()
	handler, ok := srv.handlers[req.Method]
	srv.mu.RUnlock()

	if !ok {
		return jsonrpc.NewErrorResponse(id, errors.ErrMethodNotFound)
	}

	result, rpcErr := handler(ctx, req.Params)

	if rpcErr != nil {
		return jsonrpc.NewErrorResponse(id, rpcErr)
	}

	return jsonrpc.NewResponse(id, result)
}

// respond writes one envelope.  Internal errors are the only JSON-RPC
// failures that surface as HTTP failures.
func respond(w http.ResponseWriter, resp *jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")

	if resp.Error != nil && resp.Error.Code == errors.ErrInternal.Code {
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("failed to write response", "error", err)
	}
}

// rawID converts a raw request id into its response representation, so
// string, number and null ids echo back unchanged.
func rawID(id json.RawMessage) any {
	if len(id) == 0 {
		return nil
	}

	return json.RawMessage(id)
}
