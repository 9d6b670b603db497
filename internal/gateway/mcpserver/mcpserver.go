// Package mcpserver exposes the assistant as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/protocol"
)

// UserID is the user the MCP client acts as.
const UserID = "mcp-user"

// Gateway serves MCP over a pair of streams (normally stdin/stdout).
type Gateway struct {
	chat    *gateway.Chat
	srv     *server.MCPServer
	in      io.Reader
	out     io.Writer
	version string
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewGateway creates the MCP gateway.
func NewGateway(chat *gateway.Chat, version string, in io.Reader, out io.Writer, logger *slog.Logger) *Gateway {
	g := &Gateway{chat: chat, in: in, out: out, version: version, logger: logger}
	g.srv = NewServer(chat, version)
	return g
}

// NewServer builds the MCP server with every Kusina tool registered.
func NewServer(chat *gateway.Chat, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"kusina",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("Kusina: a cooking assistant that finds recipes, walks through steps and remembers dietary preferences."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Send a message to the cooking assistant and get its answer."),
			mcp.WithString("message", mcp.Description("What the user said"), mcp.Required()),
			mcp.WithString("agent", mcp.Description("Force a specific agent (see list_agents)")),
			mcp.WithString("conversation_id", mcp.Description("Continue this conversation; empty starts a new one")),
			mcp.WithString("recipe_id", mcp.Description("Recipe currently being cooked")),
			mcp.WithNumber("step", mcp.Description("Current step of recipe_id, 1-based")),
		),
		toolAsk(chat),
	)
	s.AddTool(
		mcp.NewTool("new_conversation",
			mcp.WithDescription("Start a fresh conversation and return its id."),
		),
		toolNewConversation(chat),
	)
	s.AddTool(
		mcp.NewTool("conversation_messages",
			mcp.WithDescription("Return the retained messages of a conversation, oldest first."),
			mcp.WithString("conversation_id", mcp.Description("Conversation id"), mcp.Required()),
		),
		toolConversationMessages(chat),
	)
	s.AddTool(
		mcp.NewTool("list_agents",
			mcp.WithDescription("List the registered agents in registration order."),
		),
		toolListAgents(chat),
	)
	return s
}

// Start serves until ctx is canceled, Stop is called or input ends.
func (g *Gateway) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
	defer cancel()

	g.logger.Info("mcp server started (stdio transport)")
	err := server.NewStdioServer(g.srv).Listen(ctx, g.in, g.out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

// Stop ends Start.
func (g *Gateway) Stop(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	return nil
}

func toolAsk(chat *gateway.Chat) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil || strings.TrimSpace(message) == "" {
			return mcpError("message is required"), nil
		}

		chatReq := &protocol.ChatRequest{
			Message:        message,
			Agent:          req.GetString("agent", ""),
			ConversationID: req.GetString("conversation_id", ""),
		}
		if recipeID := req.GetString("recipe_id", ""); recipeID != "" {
			step := max(req.GetInt("step", 1), 1) - 1
			chatReq.Context = &protocol.ChatContext{CurrentRecipeID: recipeID, CurrentStep: &step}
		}

		return mcpJSON(chat.Handle(ctx, UserID, chatReq))
	}
}

func toolNewConversation(chat *gateway.Chat) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := chat.Orchestrator().CreateNewConversation()
		return mcpJSON(map[string]string{"conversationId": id})
	}
}

func toolConversationMessages(chat *gateway.Chat) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("conversation_id")
		if err != nil {
			return mcpError("conversation_id is required"), nil
		}
		return mcpJSON(chat.Orchestrator().GetConversationMessages(id))
	}
}

func toolListAgents(chat *gateway.Chat) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		agents := chat.Orchestrator().Agents()
		names := make([]string, len(agents))
		for i, a := range agents {
			names[i] = a.Name()
		}
		return mcpJSON(map[string][]string{"agents": names})
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcpText(string(data)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
