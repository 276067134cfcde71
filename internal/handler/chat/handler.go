package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zhouzirui/bikebot/internal/model/catalog"
	"github.com/zhouzirui/bikebot/internal/model/chat"
	chatService "github.com/zhouzirui/bikebot/internal/service/chat"
	"github.com/zhouzirui/bikebot/pkg/utils"
)

const (
	maxTextLength = 2000
	maxBodyBytes  = 64 << 10
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	validate *validator.Validate
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		validate: validator.New(),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleCloseSession)
		r.Put("/draft", h.handleSetDraft)
		r.Post("/messages", h.handleSubmit)
		r.Post("/quick-replies/{index}", h.handleQuickReply)
	})
}

type textPayload struct {
	Text string `json:"text" validate:"max=2000"`
}

// SubmitResponse reports whether the input was taken and the resulting state.
type SubmitResponse struct {
	Accepted bool          `json:"accepted"`
	Session  chat.Snapshot `json:"session"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeText(w, r)
	if !ok {
		return
	}

	session, err := h.chatSvc.SetDraft(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleSubmit 提交用户消息；空白或重复提交静默忽略
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeText(w, r)
	if !ok {
		return
	}

	accepted, session, err := h.chatSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, SubmitResponse{Accepted: accepted, Session: session})
}

func (h *Handler) handleQuickReply(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "quick reply index must be a number")
		return
	}

	accepted, session, err := h.chatSvc.QuickReply(r.Context(), chi.URLParam(r, "sessionID"), index)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, SubmitResponse{Accepted: accepted, Session: session})
}

func (h *Handler) decodeText(w http.ResponseWriter, r *http.Request) (textPayload, bool) {
	var payload textPayload
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return payload, false
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "text exceeds "+strconv.Itoa(maxTextLength)+" characters")
		return payload, false
	}
	return payload, true
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound), errors.Is(err, catalog.ErrQuickReplyNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrSessionClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	utils.RespondError(w, StatusFor(err), err.Error())
}
