package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"altenheim-avatar/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ConversationHandler conversation listing, transcripts, ending and export.
type ConversationHandler struct {
	conversations service.ConversationService
	logger        *zap.Logger
}

func NewConversationHandler(conversations service.ConversationService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

// ListForResident GET /api/conversations/resident/{residentId}
func (h *ConversationHandler) ListForResident(w http.ResponseWriter, r *http.Request) {
	list, err := h.conversations.ListForResident(r.Context(), identity(r), mux.Vars(r)["residentId"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// ListOwn GET /api/conversations/my
func (h *ConversationHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	list, err := h.conversations.ListOwn(r.Context(), identity(r))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// Messages GET /api/conversations/{id}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.conversations.Messages(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(msgs))
}

// End POST /api/conversations/{id}/end
func (h *ConversationHandler) End(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.End(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(conv))
}

// Export GET /api/conversations/{id}/export
func (h *ConversationHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.conversations.Export(r.Context(), identity(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("Export write failed", zap.Error(err))
	}
}
