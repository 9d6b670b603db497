// Package ws implements the chat websocket. Clients send chat.request
// envelopes and receive a chat.response (same id) or an error envelope.
// The socket keeps its own conversation id across requests.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/config"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/gateway"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/protocol"
	"github.com/john-revops11/ai-kusina-helper-sub000/internal/ratelimit"
)

// Subprotocol is advertised during the websocket handshake.
const Subprotocol = "kusina-chat-v1"

const maxFrameSize = 1 << 20 // 1 MB

// Server serves chat over websocket connections.
type Server struct {
	chat    *gateway.Chat
	cfg     *config.WebSocketGatewayConfig
	apiKeys map[string]string // empty = unauthenticated access
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewServer creates a chat websocket server. apiKeys maps token → user id
// and is shared with the HTTP gateway. rl may be nil.
func NewServer(chat *gateway.Chat, cfg *config.WebSocketGatewayConfig, apiKeys map[string]string, rl *ratelimit.Limiter, logger *slog.Logger) *Server {
	return &Server{
		chat:    chat,
		cfg:     cfg,
		apiKeys: apiKeys,
		limiter: rl,
		logger:  logger,
	}
}

// Path returns the mount path of the socket.
func (s *Server) Path() string {
	return s.cfg.WSPath()
}

// Handler returns an http.Handler that upgrades connections to WebSocket.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var userID string
	if len(s.apiKeys) > 0 {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		userID = gateway.LookupAPIKey(s.apiKeys, token)
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		s.logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	conn.SetReadLimit(maxFrameSize)

	s.handleConnection(r.Context(), conn, userID)
}

func (s *Server) handleConnection(ctx context.Context, conn *websocket.Conn, userID string) {
	defer conn.Close(websocket.StatusNormalClosure, "connection closed")

	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go s.heartbeatLoop(hbCtx, conn)

	var conversationID string
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				s.logger.Debug("chat socket closed", slog.String("user_id", userID))
			} else {
				s.logger.Warn("chat socket error",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.writeError(ctx, conn, nil, protocol.CodeInvalidMessage, "malformed envelope")
			continue
		}

		switch env.Type {
		case protocol.MsgChatRequest:
			if id := s.handleChat(ctx, conn, userID, conversationID, &env); id != "" {
				conversationID = id
			}
		default:
			s.writeError(ctx, conn, &env, protocol.CodeUnknownType, "unknown message type "+string(env.Type))
		}
	}
}

// handleChat answers one chat.request and returns the conversation id the
// socket should keep using, or "" to keep the current one.
func (s *Server) handleChat(ctx context.Context, conn *websocket.Conn, userID, conversationID string, env *protocol.Envelope) string {
	var req protocol.ChatRequest
	if err := env.Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		s.writeError(ctx, conn, env, protocol.CodeInvalidMessage, "message is required")
		return ""
	}
	if s.limiter != nil {
		if err := s.limiter.Allow(userID); err != nil {
			s.writeError(ctx, conn, env, protocol.CodeRateLimited, err.Error())
			return ""
		}
	}

	supplied := req.ConversationID != ""
	if !supplied {
		req.ConversationID = conversationID
	}

	out := s.chat.Handle(ctx, userID, &req)
	reply, err := env.Reply(protocol.MsgChatResponse, out)
	if err != nil {
		s.logger.Error("encoding chat response", slog.String("error", err.Error()))
		return ""
	}
	if err := s.writeEnvelope(ctx, conn, reply); err != nil {
		s.logger.Debug("writing chat response failed", slog.String("error", err.Error()))
	}

	if supplied {
		return ""
	}
	return out.ConversationID
}

func (s *Server) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.WSHeartbeatInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			env, _ := protocol.NewEnvelope(protocol.MsgPing, nil)
			if err := s.writeEnvelope(ctx, conn, env); err != nil {
				s.logger.Debug("heartbeat ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (s *Server) writeError(ctx context.Context, conn *websocket.Conn, req *protocol.Envelope, code, msg string) {
	env, err := req.Reply(protocol.MsgError, protocol.ErrorPayload{Code: code, Message: msg})
	if err != nil {
		return
	}
	_ = s.writeEnvelope(ctx, conn, env)
}

func (s *Server) writeEnvelope(ctx context.Context, conn *websocket.Conn, env *protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
