package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// RunRequest represents the question-answering API request.
type RunRequest struct {
	DocumentURL string   `json:"document_url"`
	Questions   []string `json:"questions"`
}

// AnswerResult represents one answered question.
type AnswerResult struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// RunResponse represents the question-answering API response.
type RunResponse struct {
	Success          bool           `json:"success"`
	DocumentURL      string         `json:"document_url"`
	Answers          []AnswerResult `json:"answers"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <document-url> <question> [question...]",
		Short: "Ask questions about a document",
		Long:  "Downloads and indexes the document at the given URL (first time only), then answers each question from its content.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, args[0], args[1:], showSources, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Show the passages each answer was grounded on")

	return cmd
}

func runAsk(cmd *cobra.Command, documentURL string, questions []string, showSources, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := RunRequest{
		DocumentURL: documentURL,
		Questions:   questions,
	}

	body, err := api.Post("/api/v1/hackrx/run", req)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	var runResp RunResponse
	if err := json.Unmarshal(body, &runResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(runResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	for i, answer := range runResp.Answers {
		fmt.Printf("Q: %s\n", answer.Question)
		fmt.Printf("A: %s\n", answer.Answer)
		if answer.Confidence != nil {
			fmt.Printf("   Confidence: %.2f\n", *answer.Confidence)
		}
		if showSources && len(answer.Sources) > 0 {
			fmt.Println("   Sources:")
			for _, source := range answer.Sources {
				// Truncate long passages for terminal output
				if len(source) > 200 {
					source = source[:197] + "..."
				}
				fmt.Printf("   - %s\n", source)
			}
		}
		if i < len(runResp.Answers)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}
	fmt.Printf("\nAnswered %d question(s) in %dms\n", len(runResp.Answers), runResp.ProcessingTimeMs)

	return nil
}
