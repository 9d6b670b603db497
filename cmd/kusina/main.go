// Kusina is the conversational cooking assistant behind the recipe app.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kusina",
	Short: "Kusina is a conversational cooking assistant.",
	Long: `Kusina routes each message to a specialized agent (cooking guidance,
recipe discovery, preferences or general chat) and keeps a bounded history
per conversation. It serves an HTTP API with a chat websocket, an interactive
terminal and an MCP tool server.`,
	RunE:          runServe, // Default to serve mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, chatCmd, queryCmd, mcpCmd, recipesCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
