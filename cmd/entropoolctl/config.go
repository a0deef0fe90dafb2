package main

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the daemon configuration",
	}
	configListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd.Context(), http.MethodGet, "config/options", nil, nil)
		},
	}
	configSetCmd = &cobra.Command{
		Use:   "set <key> <json value>",
		Short: "Set an option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]json.RawMessage{"value": json.RawMessage(args[1])})
			if err != nil {
				return err
			}
			return call(cmd.Context(), http.MethodPut, "config/options/"+args[0], nil, body)
		},
	}
	configResetCmd = &cobra.Command{
		Use:   "reset <key>",
		Short: "Reset an option to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd.Context(), http.MethodPut, "config/options/"+args[0], nil, []byte(`{"value":null}`))
		},
	}
)

func init() {
	configCmd.AddCommand(configListCmd, configSetCmd, configResetCmd)
}
