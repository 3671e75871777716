package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
	"github.com/agentvault/agentvault-go/pkg/server"
	"github.com/agentvault/agentvault-go/pkg/stores"
)

var (
	portFlag int
	hostFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve a local echo agent",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			card := a2a.NewAgentCardFromConfig("echo")
			store := stores.NewInMemoryTaskStore()

			srv := server.NewServer(*card, store)
			srv.RegisterProvider(&echoAgent{store: store})

			mux := http.NewServeMux()
			mux.Handle("/a2a", srv)
			mux.Handle("/.well-known/agent.json", srv.CardHandler())

			addr := fmt.Sprintf("%s:%d", hostFlag, portFlag)
			log.Info("serving agent", "agent", card.Name, "addr", addr)

			return http.ListenAndServe(addr, mux)
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 3210, "Port to serve on")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
}

/*
echoAgent is the development agent behind "agentvault serve".  It takes
over tasks/send: every task it creates runs through WORKING, gets the
user's text echoed back as an agent message, and completes.
*/
type echoAgent struct {
	store stores.TaskStore
}

func (agent *echoAgent) Methods() map[string]server.HandlerFunc {
	return map[string]server.HandlerFunc{
		a2a.MethodTaskSend: agent.handleSend,
	}
}

func (agent *echoAgent) handleSend(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
	var p a2a.TaskSendParams

	if err := json.Unmarshal(params, &p); err != nil {
		return nil, errors.ErrInvalidParams.WithMessagef("invalid tasks/send params: %v", err)
	}

	if err := p.Message.Validate(); err != nil {
		return nil, errors.ErrInvalidParams.WithMessagef("invalid message: %v", err)
	}

	taskID := p.TaskID()

	if taskID == "" {
		task, rpcErr := agent.store.CreateTask(ctx, p.Message)

		if rpcErr != nil {
			return nil, rpcErr
		}

		taskID = task.ID
	} else {
		if rpcErr := agent.store.AppendMessage(ctx, taskID, p.Message); rpcErr != nil {
			return nil, rpcErr
		}
	}

	go agent.process(taskID, p.Message)

	return a2a.TaskSendResult{ID: taskID}, nil
}

// process runs the echo lifecycle detached from the request.
func (agent *echoAgent) process(taskID string, incoming a2a.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, rpcErr := agent.store.SetState(ctx, taskID, a2a.TaskStateWorking); rpcErr != nil {
		log.Error("echo agent failed to start task", "task", taskID, "error", rpcErr)
		return
	}

	reply := a2a.NewTextMessage("assistant", "echo: "+incoming.String())

	if rpcErr := agent.store.AppendMessage(ctx, taskID, reply); rpcErr != nil {
		log.Error("echo agent failed to reply", "task", taskID, "error", rpcErr)
		return
	}

	if _, rpcErr := agent.store.SetState(ctx, taskID, a2a.TaskStateCompleted); rpcErr != nil {
		log.Error("echo agent failed to complete task", "task", taskID, "error", rpcErr)
	}
}

var longServe = `
Serve a local A2A agent over JSON-RPC with SSE streaming.

The endpoint is mounted at /a2a and the agent card is discoverable at
/.well-known/agent.json.

Examples:
  # Serve the echo agent on the default port
  agentvault serve

  # Bind to localhost only
  agentvault serve --host 127.0.0.1 --port 8080
`
