/*
Package cmd implements the agentvault command-line interface: serving a
local agent endpoint and talking to remote agents as a client.
*/
package cmd

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentvault/agentvault-go/pkg/logging"
)

/*
Embed a mini filesystem into the binary to hold the default config file.
It is written to the home directory of the user running the service, which
allows a developer to easily override the config.
*/
//go:embed cfg/*
var embedded embed.FS

var (
	projectName = "agentvault"
	cfgFile     string
	logLevel    string
	logPath     string

	rootCmd = &cobra.Command{
		Use:   "agentvault",
		Short: "Agent-to-Agent protocol client and server",
		Long:  longRoot,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(logLevel, logPath)
		},
	}
)

// Execute runs the root command.
func Execute() error {
	defer logging.Close()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yml",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level (debug, info, warn, error)",
	)

	rootCmd.PersistentFlags().StringVar(
		&logPath, "log-file", "", "redirect logs to a file",
	)
}

/*
initConfig writes the default config file to the user's home directory if
it doesn't exist yet, then loads it through viper.
*/
func initConfig() {
	if err := writeConfig(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	home, _ := os.UserHomeDir()
	viper.AddConfigPath(home + "/." + projectName)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("AGENTVAULT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to read config:", err)
	}
}

func writeConfig() error {
	home, err := os.UserHomeDir()

	if err != nil {
		return err
	}

	dir := home + "/." + projectName
	target := dir + "/config.yml"

	if _, err := os.Stat(target); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	src, err := embedded.Open("cfg/config.yml")

	if err != nil {
		return err
	}

	defer src.Close()

	dst, err := os.Create(target)

	if err != nil {
		return err
	}

	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

var longRoot = `
agentvault speaks the Agent-to-Agent (A2A) protocol: JSON-RPC 2.0 task
lifecycle calls over HTTP with Server-Sent Event streaming for live task
updates.

Run "agentvault serve" to expose a local agent, or "agentvault task" to
drive tasks on a remote one.
`
