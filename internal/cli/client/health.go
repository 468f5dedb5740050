package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// HealthCmd creates the health command.
func HealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Calls the unauthenticated health endpoint and reports the result.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runHealth(cmd, outputJSON)
		},
	}

	return cmd
}

// resolveBaseURL applies the flag → env → global config → default cascade
// without requiring a token.
func resolveBaseURL(cmd *cobra.Command) string {
	_ = godotenv.Load()

	if cmd != nil {
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil && flagURL != "" {
			return flagURL
		}
	}
	if envURL := os.Getenv(envAPIURL); envURL != "" {
		return envURL
	}
	if globalConfig, err := LoadGlobalConfig(); err == nil && globalConfig != nil && globalConfig.APIURL != "" {
		return globalConfig.APIURL
	}
	return defaultAPIURL
}

func runHealth(cmd *cobra.Command, outputJSON bool) error {
	baseURL := resolveBaseURL(cmd)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Get(baseURL + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy (%d): %s", resp.StatusCode, string(body))
	}

	if outputJSON {
		var status map[string]string
		if err := json.Unmarshal(body, &status); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Server at %s is healthy\n", baseURL)
	return nil
}
