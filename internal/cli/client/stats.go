package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatsResponse represents the stats API response.
type StatsResponse struct {
	Success   bool `json:"success"`
	Documents struct {
		Ready   int64 `json:"ready"`
		Pending int64 `json:"pending"`
		Failed  int64 `json:"failed"`
		Total   int64 `json:"total"`
	} `json:"documents"`
	Vectors struct {
		TotalVectors int64 `json:"total_vectors"`
		Namespaces   int64 `json:"namespaces"`
	} `json:"vectors"`
	QueriesTotal int64 `json:"queries_total"`
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show server statistics",
		Long:  "Displays document cache, vector index, and query totals.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStats(cmd, outputJSON)
		},
	}

	return cmd
}

func runStats(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	body, err := api.Get("/api/v1/stats")
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	var statsResp StatsResponse
	if err := json.Unmarshal(body, &statsResp); err != nil {
		return fmt.Errorf("failed to parse stats: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(statsResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println("Documents:")
	fmt.Printf("  Ready:   %d\n", statsResp.Documents.Ready)
	fmt.Printf("  Pending: %d\n", statsResp.Documents.Pending)
	fmt.Printf("  Failed:  %d\n", statsResp.Documents.Failed)
	fmt.Printf("  Total:   %d\n", statsResp.Documents.Total)
	fmt.Println("Vectors:")
	fmt.Printf("  Indexed:    %d\n", statsResp.Vectors.TotalVectors)
	fmt.Printf("  Namespaces: %d\n", statsResp.Vectors.Namespaces)
	fmt.Printf("Queries answered: %d\n", statsResp.QueriesTotal)

	return nil
}
