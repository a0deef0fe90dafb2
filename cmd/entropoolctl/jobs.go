package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	jobsCmd = &cobra.Command{
		Use:   "jobs",
		Short: "Manage computation jobs",
	}
	jobsSubmitCmd = &cobra.Command{
		Use:   "submit <address> <latitude> <longitude> <radius>",
		Short: "Queue a computation job",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := struct {
				Address   string  `json:"address"`
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
				Radius    float64 `json:"radius"`
				Filter    int     `json:"filter,omitempty"`
			}{
				Address: args[0],
				Filter:  filterLevel,
			}
			for i, target := range []*float64{&req.Latitude, &req.Longitude, &req.Radius} {
				v, err := strconv.ParseFloat(args[i+1], 64)
				if err != nil {
					return fmt.Errorf("invalid number %q: %w", args[i+1], err)
				}
				*target = v
			}

			body, err := json.Marshal(req)
			if err != nil {
				return err
			}
			return call(cmd.Context(), http.MethodPost, "jobs", nil, body)
		},
	}
	jobsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd.Context(), http.MethodGet, "jobs", nil, nil)
		},
	}
	jobsGetCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "Show a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd.Context(), http.MethodGet, "jobs/"+args[0], nil, nil)
		},
	}
	jobsRejectCmd = &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a queued job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd.Context(), http.MethodDelete, "jobs/"+args[0], nil, nil)
		},
	}

	filterLevel int
)

func init() {
	jobsSubmitCmd.Flags().IntVar(&filterLevel, "filter", 0, "filter level of the computation")
	jobsCmd.AddCommand(jobsSubmitCmd, jobsListCmd, jobsGetCmd, jobsRejectCmd)
}
