// Package cli implements an interactive CLI gateway for Kusina.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/handlers/cooking"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/protocol"
)

const cliUserID = "cli-user"

const help = `Commands:
  /new                 start a fresh conversation
  /agent <name>        always ask <name>; "/agent" alone goes back to routing
  /recipe <id> [step]  start cooking a recipe (step is 1-based, default 1)
  /history             show this conversation
  exit, quit           leave`

// Gateway is the interactive command-line interface.
type Gateway struct {
	chat   *gateway.Chat
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
	done   chan struct{} // closed by Stop to signal shutdown

	// Session state.
	conversationID string
	explicitAgent  string
	recipeID       string
	step           int
}

// NewGateway creates a CLI gateway reading from in and writing to out.
func NewGateway(chat *gateway.Chat, in io.Reader, out io.Writer, logger *slog.Logger) *Gateway {
	return &Gateway{
		chat:           chat,
		in:             in,
		out:            out,
		logger:         logger,
		done:           make(chan struct{}),
		conversationID: chat.Orchestrator().CreateNewConversation(),
	}
}

// Start runs the interactive REPL. Blocks until ctx is cancelled,
// Stop is called, input ends, or the user types "exit".
func (g *Gateway) Start(ctx context.Context) error {
	scanner := bufio.NewScanner(g.in)

	fmt.Fprintln(g.out, "Kusina, your kitchen helper. Ask for a recipe, or type /help.")
	fmt.Fprintln(g.out)

	for {
		fmt.Fprint(g.out, "kusina> ")

		// Check for context cancellation or Stop signal between prompts.
		select {
		case <-ctx.Done():
			fmt.Fprintln(g.out, "\nShutting down.")
			return nil
		case <-g.done:
			fmt.Fprintln(g.out, "\nShutting down.")
			return nil
		default:
		}

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Fprintln(g.out, "Goodbye.")
			return nil
		}
		if strings.HasPrefix(line, "/") {
			g.command(line)
			continue
		}

		g.ask(ctx, line)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// Stop signals the REPL to shut down.
func (g *Gateway) Stop(_ context.Context) error {
	select {
	case <-g.done:
		// Already closed.
	default:
		close(g.done)
	}
	return nil
}

func (g *Gateway) ask(ctx context.Context, line string) {
	req := &protocol.ChatRequest{
		Message:        line,
		Agent:          g.explicitAgent,
		ConversationID: g.conversationID,
	}
	if g.recipeID != "" {
		step := g.step
		req.Context = &protocol.ChatContext{CurrentRecipeID: g.recipeID, CurrentStep: &step}
	}

	out := g.chat.Handle(ctx, cliUserID, req)
	g.logger.DebugContext(ctx, "cli request",
		slog.String("user_id", cliUserID),
		slog.String("correlation_id", out.CorrelationID),
	)

	resp := out.Response
	fmt.Fprintln(g.out)
	fmt.Fprintln(g.out, resp.Message)
	for _, a := range resp.SuggestedActions {
		fmt.Fprintf(g.out, "  • %s\n", a.Label)
	}
	fmt.Fprintln(g.out)

	// The cooking agent reports where the user is now.
	if sd, ok := resp.Data.(cooking.StepData); ok && resp.Success {
		g.recipeID = sd.RecipeID
		g.step = sd.Step
	}
}

func (g *Gateway) command(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/help":
		fmt.Fprintln(g.out, help)

	case "/new":
		g.conversationID = g.chat.Orchestrator().CreateNewConversation()
		g.recipeID, g.step = "", 0
		fmt.Fprintln(g.out, "Started a new conversation.")

	case "/agent":
		if len(fields) < 2 {
			g.explicitAgent = ""
			fmt.Fprintln(g.out, "Routing automatically.")
			return
		}
		g.explicitAgent = fields[1]
		fmt.Fprintf(g.out, "Sending every message to %s.\n", g.explicitAgent)

	case "/recipe":
		if len(fields) < 2 {
			fmt.Fprintln(g.out, "Usage: /recipe <id> [step]")
			return
		}
		step := 1
		if len(fields) > 2 {
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 1 {
				fmt.Fprintln(g.out, "Step must be a positive number.")
				return
			}
			step = n
		}
		g.recipeID, g.step = fields[1], step-1
		fmt.Fprintf(g.out, "Cooking %s from step %d. Say \"next\" to move on.\n", g.recipeID, step)

	case "/history":
		msgs := g.chat.Orchestrator().GetConversationMessages(g.conversationID)
		if len(msgs) == 0 {
			fmt.Fprintln(g.out, "No messages yet.")
			return
		}
		for _, m := range msgs {
			who := "you"
			if m.Sender == agent.SenderAgent {
				who = m.AgentName
			}
			fmt.Fprintf(g.out, "[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), who, m.Content)
		}

	default:
		fmt.Fprintf(g.out, "Unknown command %s. Type /help.\n", fields[0])
	}
}
