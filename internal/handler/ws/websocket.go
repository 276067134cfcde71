package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	chatHandler "github.com/zhouzirui/bikebot/internal/handler/chat"
	"github.com/zhouzirui/bikebot/internal/logging"
	"github.com/zhouzirui/bikebot/internal/model/chat"
	chatService "github.com/zhouzirui/bikebot/internal/service/chat"
	"github.com/zhouzirui/bikebot/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket会话处理器
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage carries a submit or draft update.
type TextMessage struct {
	Text string `json:"text"`
}

// QuickReplyMessage selects a sidebar prompt.
type QuickReplyMessage struct {
	Index int `json:"index"`
}

type outgoingMessage struct {
	Type      string         `json:"type"`
	Session   *chat.Snapshot `json:"session,omitempty"`
	Event     *chat.Event    `json:"event,omitempty"`
	Data      interface{}    `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	*websocket.Conn
	mu     sync.Mutex
	logger zerolog.Logger
}

func (c *conn) send(msg outgoingMessage) error {
	msg.Timestamp = time.Now().Unix()
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.WriteJSON(msg); err != nil {
		c.logger.Debug().Err(err).Msg("write failed")
		return err
	}
	return nil
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *conn) sendError(message string) {
	_ = c.send(outgoingMessage{Type: "error", Data: map[string]string{"message": message}})
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, chatHandler.StatusFor(err), err.Error())
		return
	}

	logger := logging.Component("websocket").With().Str("session", sessionID).Logger()

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("upgrade failed")
		return
	}
	c := &conn{Conn: raw, logger: logger}
	defer c.Close()

	events, unsubscribe := session.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap := session.Snapshot()
	if err := c.send(outgoingMessage{Type: "snapshot", Session: &snap}); err != nil {
		return
	}
	logger.Debug().Msg("connection opened")

	go h.pumpEvents(ctx, cancel, c, events)
	go h.pingLoop(ctx, c)

	_ = c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("read error")
			}
			return
		}
		_ = c.SetReadDeadline(time.Now().Add(readTimeout))

		if ctx.Err() != nil {
			return
		}
		h.handleMessage(r.Context(), c, sessionID, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "submit":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError("invalid submit payload")
			return
		}
		accepted, _, err := h.chatSvc.Submit(ctx, sessionID, text.Text)
		h.sendResult(c, "submit", accepted, err)
	case "quick_reply":
		var quick QuickReplyMessage
		if err := json.Unmarshal(msg.Data, &quick); err != nil {
			c.sendError("invalid quick reply payload")
			return
		}
		accepted, _, err := h.chatSvc.QuickReply(ctx, sessionID, quick.Index)
		h.sendResult(c, "quick_reply", accepted, err)
	case "draft":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError("invalid draft payload")
			return
		}
		snap, err := h.chatSvc.SetDraft(ctx, sessionID, text.Text)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		_ = c.send(outgoingMessage{Type: "snapshot", Session: &snap})
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *Handler) sendResult(c *conn, action string, accepted bool, err error) {
	if err != nil {
		c.sendError(err.Error())
		return
	}
	_ = c.send(outgoingMessage{Type: "result", Data: map[string]any{
		"action":   action,
		"accepted": accepted,
	}})
}

// pumpEvents forwards session events until the session closes.
func (h *Handler) pumpEvents(ctx context.Context, cancel context.CancelFunc, c *conn, events <-chan chat.Event) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.mu.Lock()
				_ = c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeTimeout))
				c.mu.Unlock()
				return
			}
			if err := c.send(outgoingMessage{Type: "event", Event: &ev}); err != nil {
				return
			}
		}
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
