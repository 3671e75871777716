package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/client"
	"github.com/agentvault/agentvault-go/pkg/keys"
)

var (
	agentURLFlag string
	keyFileFlag  string
	keyringFlag  bool
	taskIDFlag   string

	taskCmd = &cobra.Command{
		Use:   "task",
		Short: "Drive tasks on a remote agent",
		Long:  longTask,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	taskSendCmd = &cobra.Command{
		Use:   "send [message]",
		Short: "Start a task, or add a message to an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := dialAgent(cmd.Context())

			if err != nil {
				return err
			}

			defer ac.Close()

			msg := a2a.NewTextMessage("user", args[0])

			if taskIDFlag != "" {
				if err := ac.SendMessage(cmd.Context(), taskIDFlag, msg); err != nil {
					return err
				}

				fmt.Println(taskIDFlag)
				return nil
			}

			taskID, err := ac.InitiateTask(cmd.Context(), msg)

			if err != nil {
				return err
			}

			fmt.Println(taskID)
			return nil
		},
	}

	taskGetCmd = &cobra.Command{
		Use:   "get [task-id]",
		Short: "Fetch the current state of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := dialAgent(cmd.Context())

			if err != nil {
				return err
			}

			defer ac.Close()

			task, err := ac.GetTaskStatus(cmd.Context(), args[0])

			if err != nil {
				return err
			}

			return json.NewEncoder(os.Stdout).Encode(task)
		},
	}

	taskCancelCmd = &cobra.Command{
		Use:   "cancel [task-id]",
		Short: "Request cancellation of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := dialAgent(cmd.Context())

			if err != nil {
				return err
			}

			defer ac.Close()

			applied, err := ac.TerminateTask(cmd.Context(), args[0])

			if err != nil {
				return err
			}

			if !applied {
				fmt.Println("task could not be cancelled")
				return nil
			}

			fmt.Println("task cancelled")
			return nil
		},
	}

	taskWatchCmd = &cobra.Command{
		Use:   "watch [task-id]",
		Short: "Stream a task's update events until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := dialAgent(cmd.Context())

			if err != nil {
				return err
			}

			defer ac.Close()

			stream, err := ac.ReceiveMessages(cmd.Context(), args[0])

			if err != nil {
				return err
			}

			defer stream.Close()

			for evt := range stream.Events() {
				if err := json.NewEncoder(os.Stdout).Encode(evt); err != nil {
					return err
				}
			}

			return stream.Err()
		},
	}
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskSendCmd)
	taskCmd.AddCommand(taskGetCmd)
	taskCmd.AddCommand(taskCancelCmd)
	taskCmd.AddCommand(taskWatchCmd)

	taskCmd.PersistentFlags().StringVarP(&agentURLFlag, "agent", "a",
		"http://localhost:3210", "Base URL of the remote agent")
	taskCmd.PersistentFlags().StringVar(&keyFileFlag, "key-file", "",
		"Path to a .env or .json credential file")
	taskCmd.PersistentFlags().BoolVar(&keyringFlag, "keyring", false,
		"Fall back to the OS keyring for credentials")

	taskSendCmd.Flags().StringVarP(&taskIDFlag, "task", "t", "",
		"Existing task to append to (omit to start a new one)")
}

/*
dialAgent discovers the remote agent's card and builds an authenticated
client for it, with credentials layered from the key file, environment
and (optionally) the OS keyring.
*/
func dialAgent(ctx context.Context) (*client.AgentClient, error) {
	card, err := fetchAgentCard(ctx, agentURLFlag)

	if err != nil {
		return nil, err
	}

	opts := []keys.Option{}

	keyFile := keyFileFlag

	if keyFile == "" {
		keyFile = viper.GetString("keys.file")
	}

	if keyFile != "" {
		opts = append(opts, keys.WithKeyFile(keyFile))
	}

	if keyringFlag || viper.GetBool("keys.keyring") {
		opts = append(opts, keys.WithKeyring())
	}

	log.Debug("dialing agent", "agent", card.Name, "url", card.URL)

	return client.NewAgentClient(*card, keys.NewManager(opts...)), nil
}

// fetchAgentCard loads and validates the card at the agent's well-known
// discovery path.
func fetchAgentCard(ctx context.Context, baseURL string) (*a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, baseURL+"/.well-known/agent.json", nil)

	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card from %s: %w", baseURL, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent card fetch returned HTTP %d", resp.StatusCode)
	}

	var card a2a.AgentCard

	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode agent card: %w", err)
	}

	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("remote agent card is invalid: %w", err)
	}

	return &card, nil
}

var longTask = `
Drive tasks on a remote A2A agent.

The agent's card is discovered at <agent>/.well-known/agent.json and its
declared auth schemes decide which credentials are attached: API keys and
OAuth client credentials are resolved from the key file, environment
variables (AGENTVAULT_KEY_<SERVICE>) and optionally the OS keyring.

Examples:
  # Start a task on a local agent
  agentvault task send "summarize this repo"

  # Stream its updates
  agentvault task watch <task-id>

  # Use API keys from a credential file
  agentvault task send --key-file ~/.agentvault/keys.env "hello"
`
