package page

import (
	"bytes"
	"net/http"

	"github.com/zhouzirui/bikebot/internal/logging"
	chatService "github.com/zhouzirui/bikebot/internal/service/chat"
	"github.com/zhouzirui/bikebot/internal/web"
	"github.com/zhouzirui/bikebot/pkg/utils"
)

// Handler serves the chat view. Every page load starts a fresh session.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates the chat page handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// ServeHTTP renders the chat view for a new session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to start chat session")
		return
	}

	var buf bytes.Buffer
	if err := web.RenderChat(&buf, web.NewChatPage(h.chatSvc.Catalog(), session)); err != nil {
		logger := logging.Component("page")
		logger.Error().Err(err).Msg("failed to render chat page")
		utils.RespondError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
