package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"altenheim-avatar/internal/auth"
	"altenheim-avatar/internal/llm"
	"altenheim-avatar/internal/service"
)

// ChatPreparer authorizes, opens and completes chat turns.
type ChatPreparer interface {
	Prepare(ctx context.Context, id *auth.Identity, req service.ChatRequest) (*service.ChatTurn, error)
	Complete(ctx context.Context, turn *service.ChatTurn, reply string, tokensUsed int) error
}

// StreamBridge relays a turn to the model.
type StreamBridge interface {
	Stream(ctx context.Context, req llm.StreamRequest, cb llm.Callbacks)
}

var _ ChatPreparer = (*service.ChatService)(nil)
var _ StreamBridge = (*llm.Bridge)(nil)

// ChatHandler POST /api/chat, answered as server-sent events.
type ChatHandler struct {
	chat   ChatPreparer
	bridge StreamBridge
	logger *zap.Logger
}

func NewChatHandler(chat ChatPreparer, bridge StreamBridge, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, bridge: bridge, logger: logger}
}

// chatEvent is one SSE data payload.
type chatEvent struct {
	Type           string `json:"type"`
	Text           string `json:"text,omitempty"`
	Reply          string `json:"reply,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// sseWriter drops writes once the client is gone.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	client  context.Context
	logger  *zap.Logger
}

func (s *sseWriter) send(ev chatEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client.Err() != nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("Failed to encode chat event", zap.Error(err))
		return
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.logger.Debug("Chat client went away", zap.Error(err))
		return
	}
	s.flusher.Flush()
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, Fail("Streaming not supported."))
		return
	}

	turn, err := h.chat.Prepare(r.Context(), identity(r), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	out := &sseWriter{w: w, flusher: flusher, client: r.Context(), logger: h.logger}
	// Headers are out, so a panic from here on ends the stream with an error event.
	defer func() {
		if v := recover(); v != nil {
			h.logger.Error("Chat stream panicked",
				zap.Any("panic", v),
				zap.String("path", r.URL.Path),
				zap.Stack("stack"),
			)
			out.send(chatEvent{Type: "error", Error: "Internal server error."})
		}
	}()
	// The reply is produced and stored even if the client disconnects.
	ctx := context.WithoutCancel(r.Context())
	conversationID := turn.Conversation.ConversationID

	h.bridge.Stream(ctx, turn.StreamRequest(), llm.Callbacks{
		OnText: func(text string) {
			out.send(chatEvent{Type: "text", Text: text})
		},
		OnDone: func(reply string, tokensUsed int) {
			if err := h.chat.Complete(ctx, turn, reply, tokensUsed); err != nil {
				h.logger.Error("Reply delivered but not stored",
					zap.String("conversation_id", conversationID),
					zap.Error(err),
				)
			}
			out.send(chatEvent{Type: "done", Reply: reply, ConversationID: conversationID})
		},
		OnError: func(message string) {
			out.send(chatEvent{Type: "error", Error: message})
		},
	})
}
