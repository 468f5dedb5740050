package main

import (
	"fmt"
	"os"

	"github.com/aura-labs/aura/internal/cli"
	"github.com/aura-labs/aura/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "aura",
		Short: "Aura CLI - Document question answering",
		Long: `Aura CLI asks questions about documents over the aura API.

Environment variables:
  AURA_API_TOKEN   Bearer token for authentication (required)
  AURA_API_URL     API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-token", "", "Bearer token for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.StatsCmd())
	rootCmd.AddCommand(client.LogsCmd())
	rootCmd.AddCommand(client.HealthCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
