package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentvault/agentvault-go/pkg/keys"
)

var (
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Manage local agent credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	keysSetCmd = &cobra.Command{
		Use:   "set [service-id] [secret]",
		Short: "Store an API key in the OS keyring",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := keys.NewManager(keys.WithKeyring())

			if err := manager.SetKeyInKeyring(args[0], args[1]); err != nil {
				return err
			}

			fmt.Println("key stored for", args[0])
			return nil
		},
	}

	keysCheckCmd = &cobra.Command{
		Use:   "check [service-id]",
		Short: "Report where a service's key resolves from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []keys.Option{keys.WithKeyring()}

			if keyFileFlag != "" {
				opts = append(opts, keys.WithKeyFile(keyFileFlag))
			}

			manager := keys.NewManager(opts...)

			if manager.GetKey(args[0]) == "" {
				fmt.Println("no key found for", args[0])
				return nil
			}

			fmt.Printf("key for %s found (source: %s)\n", args[0], manager.GetKeySource(args[0]))
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysSetCmd)
	keysCmd.AddCommand(keysCheckCmd)

	keysCmd.PersistentFlags().StringVar(&keyFileFlag, "key-file", "",
		"Path to a .env or .json credential file")
}
