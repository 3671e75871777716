package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
	"github.com/agentvault/agentvault-go/pkg/jsonrpc"
	"github.com/agentvault/agentvault-go/pkg/sse"
)

/*
handleTaskSend serves tasks/send.  An empty task id creates a fresh task
seeded with the message; a non-empty id appends to the existing task, and
a task waiting for input resumes working.
*/
func (srv *Server) handleTaskSend(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
	var p a2a.TaskSendParams

	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errors.ErrInvalidParams.WithMessagef("invalid tasks/send params: %v", err)
	}

	if err := p.Message.Validate(); err != nil {
		return nil, errors.ErrInvalidParams.WithMessagef("invalid message: %v", err)
	}

	taskID := p.TaskID()

	if taskID == "" {
		task, rpcErr := srv.store.CreateTask(ctx, p.Message)

		if rpcErr != nil {
			return nil, rpcErr
		}

		return a2a.TaskSendResult{ID: task.ID}, nil
	}

	task, rpcErr := srv.store.GetTask(ctx, taskID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if rpcErr := srv.store.AppendMessage(ctx, taskID, p.Message); rpcErr != nil {
		return nil, rpcErr
	}

	// Client input un-blocks a waiting task.
	if task.State() == a2a.TaskStateInputRequired {
		if _, rpcErr := srv.store.SetState(ctx, taskID, a2a.TaskStateWorking); rpcErr != nil {
			return nil, rpcErr
		}
	}

	return a2a.TaskSendResult{ID: taskID}, nil
}

// handleTaskGet serves tasks/get with a snapshot of the task.
func (srv *Server) handleTaskGet(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
	var p a2a.TaskGetParams

	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errors.ErrInvalidParams.WithMessagef("invalid tasks/get params: %v", err)
	}

	if p.ID == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("task id must not be empty")
	}

	return srv.store.GetTask(ctx, p.ID)
}

/*
handleTaskCancel serves tasks/cancel.  Cancelling a task that already
reached a terminal state is a successful call reporting success: false.
*/
func (srv *Server) handleTaskCancel(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
	var p a2a.TaskCancelParams

	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errors.ErrInvalidParams.WithMessagef("invalid tasks/cancel params: %v", err)
	}

	if p.ID == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("task id must not be empty")
	}

	applied, rpcErr := srv.store.SetState(ctx, p.ID, a2a.TaskStateCanceled)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if !applied {
		task, rpcErr := srv.store.GetTask(ctx, p.ID)

		if rpcErr != nil {
			return nil, rpcErr
		}

		reason := fmt.Sprintf("task is already %s", task.State())
		return a2a.TaskCancelResult{Success: false, Message: &reason}, nil
	}

	return a2a.TaskCancelResult{Success: true}, nil
}

/*
handleSubscribe serves tasks/sendSubscribe.  Validation failures and
unknown tasks answer with a plain JSON-RPC envelope before any stream
bytes are written; once the subscription is accepted the connection
carries Server-Sent Events until the task's terminal status event.
*/
func (srv *Server) handleSubscribe(w http.ResponseWriter, r *http.Request, req *jsonrpc.Request) {
	id := rawID(req.ID)

	var p a2a.TaskSubscribeParams

	if err := json.Unmarshal(req.Params, &p); err != nil {
		respond(w, jsonrpc.NewErrorResponse(id,
			errors.ErrInvalidParams.WithMessagef("invalid tasks/sendSubscribe params: %v", err)))
		return
	}

	if p.ID == "" {
		respond(w, jsonrpc.NewErrorResponse(id,
			errors.ErrInvalidParams.WithMessagef("task id must not be empty")))
		return
	}

	events, rpcErr := srv.store.Subscribe(r.Context(), p.ID)

	if rpcErr != nil {
		respond(w, jsonrpc.NewErrorResponse(id, rpcErr))
		return
	}

	sw, err := sse.NewWriter(w)

	if err != nil {
		respond(w, jsonrpc.NewErrorResponse(id,
			errors.ErrInternal.WithMessagef("streaming unsupported: %v", err)))
		return
	}

	log.Debug("stream subscription opened", "task", p.ID)

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				log.Debug("stream subscription completed", "task", p.ID)
				return
			}

			if err := sw.Send(evt.EventName(), evt); err != nil {
				log.Warn("subscriber went away mid-stream", "task", p.ID, "error", err)
				return
			}
		case <-r.Context().Done():
			log.Debug("subscriber disconnected", "task", p.ID)
			return
		}
	}
}
