package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/protocol"
)

// Exit codes for the query command.
const (
	ExitSuccess        = 0
	ExitFailure        = 1
	ExitUnauthorized   = 2
	ExitGatewayUnavail = 3
)

var (
	queryMessage    string
	queryGatewayURL string
	queryAPIKey     string
	queryAgent      string
	queryTimeout    int
	queryConvID     string
	queryRecipeID   string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Send a one-shot message to a running gateway",
	Long: `Send a message to the Kusina HTTP API and print the reply.
Pass --conversation-id to continue an earlier exchange.

Examples:
  kusina query -m "recipe for chicken adobo"
  kusina query -m "next step" --recipe chicken-adobo --conversation-id <id>
  kusina query -m "hello" --agent ChatSupport

Exit codes:
  0  success
  1  request or agent failure
  2  unauthorized or rate limited
  3  gateway unavailable`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryMessage, "message", "m", "", "message to send (required)")
	queryCmd.Flags().StringVar(&queryGatewayURL, "gateway-url", "http://localhost:8080", "gateway HTTP API URL")
	queryCmd.Flags().StringVar(&queryAPIKey, "api-key", "", "API key for gateway authentication (or KUSINA_API_KEY env)")
	queryCmd.Flags().StringVar(&queryAgent, "agent", "", "address a specific agent by name")
	queryCmd.Flags().IntVar(&queryTimeout, "timeout", 60, "timeout in seconds")
	queryCmd.Flags().StringVar(&queryConvID, "conversation-id", "", "conversation ID for multi-turn context")
	queryCmd.Flags().StringVar(&queryRecipeID, "recipe", "", "recipe currently being cooked")

	_ = queryCmd.MarkFlagRequired("message")
}

func runQuery(_ *cobra.Command, _ []string) error {
	if queryMessage == "" {
		return fmt.Errorf("message is required: use -m flag")
	}

	apiKey := goutils.Env("KUSINA_API_KEY", queryAPIKey)
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: API key required (use --api-key or set KUSINA_API_KEY)")
		os.Exit(ExitUnauthorized)
	}
	gatewayURL := goutils.Env("KUSINA_GATEWAY_URL", queryGatewayURL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(queryTimeout)*time.Second)
	defer cancel()

	chatReq := protocol.ChatRequest{
		Message:        queryMessage,
		Agent:          queryAgent,
		ConversationID: queryConvID,
	}
	if queryRecipeID != "" {
		chatReq.Context = &protocol.ChatContext{CurrentRecipeID: queryRecipeID}
	}
	reqBody, _ := json.Marshal(chatReq)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gatewayURL+"/v1/chat", bytes.NewReader(reqBody))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitFailure)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach gateway at %s: %v\n", gatewayURL, err)
		os.Exit(ExitGatewayUnavail)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		var result protocol.ChatResponse
		if err := json.Unmarshal(respBody, &result); err != nil || result.Response == nil {
			fmt.Fprintf(os.Stderr, "Error: unexpected response: %s\n", string(respBody))
			os.Exit(ExitFailure)
		}
		fmt.Println(result.Response.Message)
		for _, a := range result.Response.SuggestedActions {
			fmt.Printf("  • %s\n", a.Label)
		}
		fmt.Fprintf(os.Stderr, "\n[conversation_id=%s correlation_id=%s]\n",
			result.ConversationID, result.CorrelationID)
		if !result.Response.Success {
			os.Exit(ExitFailure)
		}
		os.Exit(ExitSuccess)

	case http.StatusUnauthorized:
		fmt.Fprintln(os.Stderr, "Error: unauthorized (check API key)")
		os.Exit(ExitUnauthorized)

	case http.StatusTooManyRequests:
		fmt.Fprintln(os.Stderr, "Error: rate limited, try again later")
		os.Exit(ExitUnauthorized)

	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		fmt.Fprintf(os.Stderr, "Error: gateway unavailable (%d)\n", resp.StatusCode)
		os.Exit(ExitGatewayUnavail)

	default:
		fmt.Fprintf(os.Stderr, "Error: gateway returned %d: %s\n", resp.StatusCode, string(respBody))
		os.Exit(ExitFailure)
	}

	return nil
}
