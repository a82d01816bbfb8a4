package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chronus-app/chronus/internal/auth"
	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4096
)

// Frame is the payload broadcast to every connected participant when a
// message is posted.
type Frame struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	SenderID string `json:"sender_id"`
}

// Handler serves the chat websocket endpoint. Each accepted connection joins
// the collaboration's room; every received text frame is persisted as a
// message and relayed to the room.
type Handler struct {
	store    store.Store
	authSvc  *auth.Service
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new chat handler.
func NewHandler(st store.Store, authSvc *auth.Service, hub *Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:   st,
		authSvc: authSvc,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeWS handles GET /v1/collaborations/{collaborationID}/chat/ws.
// Browsers cannot set headers on websocket dials, so the token arrives as a
// query parameter. Non-participants are rejected before the upgrade.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractQueryToken(r.URL.Query())
	claims, err := h.authSvc.ValidateToken(token)
	if err != nil {
		h.logger.Debug("chat token validation failed", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	collaborationID := chi.URLParam(r, "collaborationID")
	collab, err := h.store.Collaborations().Get(r.Context(), collaborationID)
	if err != nil {
		http.Error(w, "collaboration not found", http.StatusNotFound)
		return
	}
	if !collab.Participant(claims.StudentID) {
		http.Error(w, "you don't have permission to join this chat", http.StatusForbidden)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	conn := h.hub.Join(collaborationID, claims.StudentID)

	// The request context carries the router's timeout, which bounds the
	// handshake but must not bound the connection.
	ctx := context.WithoutCancel(r.Context())

	go h.writePump(ws, conn)
	h.readPump(ctx, ws, conn, collaborationID, claims.StudentID)
}

// readPump reads text frames until the connection drops, persisting each as
// a message row and broadcasting it to the room.
func (h *Handler) readPump(ctx context.Context, ws *websocket.Conn, conn *Conn, collaborationID, senderID string) {
	defer func() {
		h.hub.Leave(conn)
		ws.Close()
	}()

	ws.SetReadLimit(maxMsgSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, text, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("chat connection closed unexpectedly", "error", err)
			}
			return
		}
		if len(text) == 0 {
			continue
		}

		msg := &models.Message{
			ID:              uuid.New().String(),
			CollaborationID: collaborationID,
			SenderID:        senderID,
			Text:            string(text),
			Read:            false,
			Timestamp:       time.Now().UTC(),
		}
		if err := h.store.Messages().Create(ctx, msg); err != nil {
			h.logger.Error("failed to persist chat message",
				"error", err,
				"collaboration_id", collaborationID,
			)
			continue
		}

		frame, err := json.Marshal(Frame{ID: msg.ID, Text: msg.Text, SenderID: senderID})
		if err != nil {
			h.logger.Error("failed to marshal chat frame", "error", err)
			continue
		}
		h.hub.Broadcast(collaborationID, frame)
	}
}

// writePump forwards frames from the hub to the socket and keeps the
// connection alive with pings.
func (h *Handler) writePump(ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case frame, ok := <-conn.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
