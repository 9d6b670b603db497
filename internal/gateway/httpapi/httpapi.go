// Package httpapi implements the HTTP API gateway for Kusina.
//
// Security:
//   - API key authentication on every /v1 request (constant-time comparison)
//   - Request body size limits (default 1 MB)
//   - Per-user rate limiting via token bucket
//   - TLS expected via reverse proxy (not handled here)
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jkaninda/okapi"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/agent"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/observability"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/protocol"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/ratelimit"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

const defaultMaxRequestSize = 1 << 20 // 1 MB

// ErrorBody is the standard error response used in OpenAPI documentation.
type ErrorBody struct {
	Error string `json:"error"`
}

// Config configures the HTTP API gateway.
type Config struct {
	ListenAddr     string // e.g., ":8080"
	EnableDocs     bool
	APIKeys        map[string]string // API key → user ID mapping.
	MaxRequestSize int64             // Maximum request body in bytes. 0 = 1 MB default.

	// Observability
	Observability *observability.Observability // nil = no metrics, tracing or readiness checks.
	MetricsPath   string                       // Default: "/metrics".
}

// Gateway is the HTTP API gateway.
type Gateway struct {
	config  Config
	chat    *gateway.Chat
	recipes recipe.Store
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	server  *http.Server

	// Extra handlers mounted on the HTTP mux (e.g., the chat websocket).
	extraRoutes []extraRoute

	okapi     *okapi.Okapi
	group     *okapi.Group
	setupOnce sync.Once
}

// extraRoute stores an additional handler to be mounted on the HTTP mux.
type extraRoute struct {
	pattern string
	handler http.Handler
}

// NewGateway creates an HTTP API gateway. rl may be nil (no rate limiting).
func NewGateway(cfg Config, chat *gateway.Chat, recipes recipe.Store, rl *ratelimit.Limiter, logger *slog.Logger) *Gateway {
	maxSize := cfg.MaxRequestSize
	if maxSize <= 0 {
		maxSize = defaultMaxRequestSize
	}
	cfg.MaxRequestSize = maxSize
	return &Gateway{
		config:  cfg,
		chat:    chat,
		recipes: recipes,
		limiter: rl,
		logger:  logger,
		okapi:   okapi.New(okapi.WithMaxMultipartMemory(maxSize)),
	}
}

// WithOpenAPIDocs serves generated API docs.
func (g *Gateway) WithOpenAPIDocs() *Gateway {
	g.okapi.WithOpenAPIDocs(
		okapi.OpenAPI{
			Title:   "Kusina",
			Version: "v1",
		},
	)
	return g
}

// WithHandler mounts an additional GET handler at the given pattern.
// Used for the chat websocket. Must be called before Start or Handler.
func (g *Gateway) WithHandler(pattern string, handler http.Handler) *Gateway {
	g.extraRoutes = append(g.extraRoutes, extraRoute{pattern: pattern, handler: handler})
	return g
}

// Handler returns the fully routed HTTP handler.
func (g *Gateway) Handler() http.Handler {
	g.setupOnce.Do(g.routes)
	return g.okapi
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	g.setupOnce.Do(g.routes)

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("http api gateway starting", slog.String("addr", g.config.ListenAddr))

	err := g.okapi.StartServer(g.server)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(_ context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("http api gateway stopping")
	return g.okapi.Shutdown(g.server)
}

func (g *Gateway) routes() {
	obs := g.config.Observability
	tracer := obs.TracerOrNil().Tracer()
	metricsMw := observability.MetricsMiddleware(obs.MetricsOrNil(), tracer)

	// Authenticated /v1 group.
	g.group = g.okapi.Group("/v1", chain(metricsMw, g.authenticate))

	g.group.Post("/chat", g.handleChat,
		okapi.DocSummary("Send a message to the cooking assistant"),
		okapi.DocTags("Chat"),
		okapi.DocRequestBody(protocol.ChatRequest{}),
		okapi.DocResponse(protocol.ChatResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
		okapi.DocResponse(http.StatusTooManyRequests, ErrorBody{}),
	)
	g.group.Post("/conversations", g.handleNewConversation,
		okapi.DocSummary("Start a new conversation"),
		okapi.DocTags("Conversations"),
		okapi.DocResponse(http.StatusCreated, ConversationResponse{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
	)
	g.group.Get("/conversations/{id}/messages", g.handleConversationMessages,
		okapi.DocSummary("List the retained messages of a conversation"),
		okapi.DocTags("Conversations"),
		okapi.DocPathParam("id", "string", "Conversation ID"),
		okapi.DocResponse([]agent.Message{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
	)
	g.group.Get("/agents", g.handleAgents,
		okapi.DocSummary("List registered agents in registration order"),
		okapi.DocTags("Agents"),
		okapi.DocResponse(AgentsResponse{}),
	)
	g.group.Get("/recipes/{id}", g.handleRecipe,
		okapi.DocSummary("Get a recipe by ID"),
		okapi.DocTags("Recipes"),
		okapi.DocPathParam("id", "string", "Recipe ID"),
		okapi.DocResponse(recipe.Recipe{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)

	for _, er := range g.extraRoutes {
		g.okapi.HandleStd("GET", er.pattern, er.handler.ServeHTTP)
	}

	// Observability endpoints (unauthenticated).
	g.okapi.Get("/healthz", g.handleLiveness)
	g.okapi.Get("/readyz", g.handleReadiness)

	if h := obs.MetricsHandler(); h != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.okapi.HandleStd("GET", path, h.ServeHTTP)
	}
	if g.config.EnableDocs {
		g.WithOpenAPIDocs()
	}
}

// --- Handlers ---

// ConversationResponse is the JSON response for POST /v1/conversations.
type ConversationResponse struct {
	ConversationID string `json:"conversationId"`
}

// AgentsResponse is the JSON response for GET /v1/agents.
type AgentsResponse struct {
	Agents []string `json:"agents"`
}

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (g *Gateway) handleChat(c *okapi.Context) error {
	userID := c.GetString("userID")

	if g.limiter != nil {
		if err := g.limiter.Allow(userID); err != nil {
			return c.AbortTooManyRequests("rate limit exceeded")
		}
	}

	if c.Request().ContentLength > g.config.MaxRequestSize {
		return c.AbortBadRequest("request body too large")
	}
	var req protocol.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.AbortBadRequest("message is required")
	}

	out := g.chat.Handle(c.Context(), userID, &req)

	g.logger.Info("http chat",
		slog.String("user_id", userID),
		slog.String("correlation_id", out.CorrelationID),
		slog.String("conversation_id", out.ConversationID),
	)
	return c.OK(out)
}

func (g *Gateway) handleNewConversation(c *okapi.Context) error {
	id := g.chat.Orchestrator().CreateNewConversation()
	return c.JSON(http.StatusCreated, ConversationResponse{ConversationID: id})
}

func (g *Gateway) handleConversationMessages(c *okapi.Context) error {
	return c.OK(g.chat.Orchestrator().GetConversationMessages(c.Param("id")))
}

func (g *Gateway) handleAgents(c *okapi.Context) error {
	agents := g.chat.Orchestrator().Agents()
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name()
	}
	return c.OK(AgentsResponse{Agents: names})
}

func (g *Gateway) handleRecipe(c *okapi.Context) error {
	r, err := g.recipes.Get(c.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			return c.JSON(http.StatusNotFound, okapi.M{"error": "recipe not found"})
		}
		g.logger.Error("recipe lookup failed",
			slog.String("recipe_id", c.Param("id")),
			slog.String("error", err.Error()),
		)
		return c.AbortInternalServerError("recipe lookup failed")
	}
	return c.OK(r)
}

// handleLiveness is the Kubernetes liveness probe.
func (g *Gateway) handleLiveness(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// handleReadiness checks all registered dependencies and returns 200 or 503.
func (g *Gateway) handleReadiness(c *okapi.Context) error {
	obs := g.config.Observability
	if obs == nil || obs.Health == nil {
		return c.OK(&HealthResponse{Status: "ok"})
	}

	status := obs.Health.CheckReady(c.Context())
	code := http.StatusOK
	if !status.OK() {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// --- Authentication ---

// authenticate validates the API key and stores the mapped user ID.
func (g *Gateway) authenticate(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		authHeader := c.Header("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.AbortUnauthorized("missing or invalid Authorization header")
		}
		userID := gateway.LookupAPIKey(g.config.APIKeys, strings.TrimPrefix(authHeader, "Bearer "))
		if userID == "" {
			return c.AbortUnauthorized("invalid API key")
		}
		c.Set("userID", userID)
		return next(c)
	}
}

// chain composes middlewares so the first one runs outermost.
func chain(mws ...okapi.Middleware) okapi.Middleware {
	return func(next okapi.HandlerFunc) okapi.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
