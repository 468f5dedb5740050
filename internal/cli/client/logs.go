package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// LogEntry represents one answered question in the logs API response.
type LogEntry struct {
	ID               string   `json:"id"`
	DocumentURL      string   `json:"document_url"`
	Question         string   `json:"question"`
	Answer           string   `json:"answer"`
	Sources          []string `json:"sources"`
	Confidence       *float64 `json:"confidence,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	RequestID        string   `json:"request_id,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

// LogsResponse represents the logs API response.
type LogsResponse struct {
	Success    bool       `json:"success"`
	Items      []LogEntry `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// LogsCmd creates the logs command.
func LogsCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List answered questions",
		Long:  "Lists the query log, newest first, with cursor pagination.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runLogs(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runLogs(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	path := "/api/v1/logs"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	body, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("logs failed: %w", err)
	}

	var logsResp LogsResponse
	if err := json.Unmarshal(body, &logsResp); err != nil {
		return fmt.Errorf("failed to parse logs: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(logsResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(logsResp.Items) == 0 {
		fmt.Println("No log entries found.")
		return nil
	}

	for i, entry := range logsResp.Items {
		fmt.Printf("%s  %s\n", entry.CreatedAt, entry.DocumentURL)
		fmt.Printf("Q: %s\n", entry.Question)
		answer := entry.Answer
		if len(answer) > 200 {
			answer = answer[:197] + "..."
		}
		fmt.Printf("A: %s\n", answer)
		if entry.Confidence != nil {
			fmt.Printf("   Confidence: %.2f\n", *entry.Confidence)
		}
		if i < len(logsResp.Items)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}
	if logsResp.HasMore && logsResp.NextCursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More entries available. Use --cursor %s\n", logsResp.NextCursor)
	}

	return nil
}
