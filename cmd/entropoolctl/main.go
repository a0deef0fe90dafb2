// Entropoolctl is a command line client for the entropoold API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiAddress string

	rootCmd = &cobra.Command{
		Use:           "entropoolctl",
		Short:         "Command line client for the entropool daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddress, "api", "127.0.0.1:8117", "address of the entropool API")

	rootCmd.AddCommand(poolCmd, recordCmd, randomCmd, jobsCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
