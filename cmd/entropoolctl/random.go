package main

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	randomCmd = &cobra.Command{
		Use:   "random",
		Short: "Request unbiased random values",
	}
	randomIntCmd = &cobra.Command{
		Use:   "int <min> <max>",
		Short: "Random integer in [min, max)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callRandom(cmd, "random/int", url.Values{"min": {args[0]}, "max": {args[1]}})
		},
	}
	randomHexCmd = &cobra.Command{
		Use:   "hex <length>",
		Short: "Random lowercase hex string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callRandom(cmd, "random/hex", url.Values{"length": {args[0]}})
		},
	}
	randomBytesCmd = &cobra.Command{
		Use:   "bytes <length>",
		Short: "Random bytes, hex encoded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callRandom(cmd, "random/bytes", url.Values{
				"length": {args[0]},
				"batch":  {strconv.FormatBool(batchMode)},
			})
		},
	}
	randomCoordinatesCmd = &cobra.Command{
		Use:   "coordinates [count]",
		Short: "Random coordinates on the integer-degree grid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := "1"
			if len(args) > 0 {
				count = args[0]
			}
			return callRandom(cmd, "random/coordinates", url.Values{"count": {count}})
		},
	}
	randomDoubleCmd = &cobra.Command{
		Use:   "double",
		Short: "Random float in [0, 1)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return callRandom(cmd, "random/double", url.Values{})
		},
	}

	useLocal  bool
	batchMode bool
)

func init() {
	randomCmd.PersistentFlags().BoolVar(&useLocal, "local", false, "use the local generator instead of the remote entropy pool")
	randomBytesCmd.Flags().BoolVar(&batchMode, "batch", false, "collect entropy in batch mode, returns ten times the length")
	randomCmd.AddCommand(randomIntCmd, randomHexCmd, randomBytesCmd, randomCoordinatesCmd, randomDoubleCmd)
}

func callRandom(cmd *cobra.Command, path string, query url.Values) error {
	if useLocal {
		query.Set("source", "local")
	}
	return call(cmd.Context(), http.MethodGet, path, query, nil)
}
