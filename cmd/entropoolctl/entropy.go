package main

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	poolCmd = &cobra.Command{
		Use:   "pool",
		Short: "Inspect the entropy pool",
	}
	poolStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show pool statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd.Context(), http.MethodGet, "entropy/pool/stats", nil, nil)
		},
	}
	poolSnapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Print the pool content and its address, then clear the pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd.Context(), http.MethodGet, "entropy/pool/snapshot", nil, nil)
		},
	}

	recordCmd = &cobra.Command{
		Use:   "record",
		Short: "Manage entropy records",
	}
	recordRequestCmd = &cobra.Command{
		Use:   "request <size>",
		Short: "Draw entropy from the pool and store it as a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid size: %w", err)
			}
			return call(cmd.Context(), http.MethodPost, "entropy/request", url.Values{"size": {args[0]}}, nil)
		},
	}
	recordSubmitCmd = &cobra.Command{
		Use:   "submit <file>",
		Short: "Store the hex encoded entropy in file as a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			content := strings.TrimSpace(string(data))
			raw, err := hex.DecodeString(content)
			if err != nil {
				return fmt.Errorf("file does not contain hex: %w", err)
			}

			query := url.Values{"size": {strconv.Itoa(len(raw))}}
			if submitToPool {
				query.Set("pool", "true")
			}
			return call(cmd.Context(), http.MethodPost, "entropy/submit", query, []byte(content))
		},
	}
	recordGetCmd = &cobra.Command{
		Use:   "get <address|cid>",
		Short: "Look up a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if !withContent {
				query.Set("content", "false")
			}
			return call(cmd.Context(), http.MethodGet, "entropy/"+args[0], query, nil)
		},
	}

	submitToPool bool
	withContent  bool
)

func init() {
	poolCmd.AddCommand(poolStatsCmd, poolSnapshotCmd)

	recordSubmitCmd.Flags().BoolVar(&submitToPool, "pool", false, "add the entropy to the pool instead of storing a record")
	recordGetCmd.Flags().BoolVar(&withContent, "content", true, "include the record content")
	recordCmd.AddCommand(recordRequestCmd, recordSubmitCmd, recordGetCmd)
}
