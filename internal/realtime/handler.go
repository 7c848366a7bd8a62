package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mindline/mindline/internal/domain/mentoring"
	"github.com/mindline/mindline/internal/platform/auth"
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// AccessResolver is the access-control gate consulted before any join is
// recorded. Satisfied by the mentoring service.
type AccessResolver interface {
	ResolveAccess(ctx context.Context, sessionID uuid.UUID, p mentoring.Principal) (*mentoring.Access, error)
}

// Handler owns the WebSocket endpoint: upgrade, identity resolution, the
// read/write pumps, and the control protocol (join, leave, typing).
type Handler struct {
	registry   *Registry
	membership *Membership
	rooms      *Rooms
	access     AccessResolver
	jwtConfig  auth.JWTConfig
	logger     zerolog.Logger
}

func NewHandler(
	registry *Registry,
	membership *Membership,
	rooms *Rooms,
	access AccessResolver,
	jwtConfig auth.JWTConfig,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		registry:   registry,
		membership: membership,
		rooms:      rooms,
		access:     access,
		jwtConfig:  jwtConfig,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.HandleConnect)
}

// principalFromRequest resolves identity before the upgrade. Browsers cannot
// set an Authorization header on a WebSocket handshake, so the token rides a
// query parameter; anonymous students present their profile id instead.
func (h *Handler) principalFromRequest(c echo.Context) mentoring.Principal {
	if token := c.QueryParam("token"); token != "" {
		claims, err := auth.VerifyToken(h.jwtConfig, token)
		if err != nil {
			h.logger.Debug().Err(err).Msg("websocket token rejected")
			return mentoring.Principal{}
		}
		return mentoring.Principal{UserID: claims.Subject}
	}
	if anon := c.QueryParam("anonymous_id"); anon != "" {
		if id, err := uuid.Parse(anon); err == nil {
			return mentoring.Principal{AnonymousStudentID: id}
		}
	}
	return mentoring.Principal{}
}

// HandleConnect upgrades the connection, registers the client, and starts
// the pumps. Connections with no resolvable identity are rejected before
// the upgrade.
func (h *Handler) HandleConnect(c echo.Context) error {
	principal := h.principalFromRequest(c)
	if principal.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(uuid.New().String(), principal, &gorillaConnAdapter{ws})
	h.registry.Register(client)

	if data, err := json.Marshal(connectionEstablished(client.ID)); err == nil {
		client.TrySend(data)
	}

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// readPump runs for the life of the connection. The request context is dead
// once the handshake handler returns (net/http cancels a hijacked request's
// context), so control frames run under a connection-scoped context that is
// canceled only when the pump exits.
func (h *Handler) readPump(client *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.membership.LeaveAll(client.ID)
		h.registry.Unregister(client.ID)
		client.conn.Close()
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendTo(client, errorEvent("malformed message"))
			continue
		}

		h.handleControl(ctx, client, msg)
	}
}

// handleControl dispatches an inbound control frame. join_session is the
// gate: subscription failures are dropped silently so an outsider probing
// session ids learns nothing, not even whether the session exists.
func (h *Handler) handleControl(ctx context.Context, client *Client, msg ClientMessage) {
	switch msg.Type {
	case "join_session":
		if _, err := h.access.ResolveAccess(ctx, msg.SessionID, client.Principal); err != nil {
			h.logger.Debug().Err(err).Str("conn_id", client.ID).
				Str("session_id", msg.SessionID.String()).Msg("join rejected")
			return
		}
		h.membership.Join(msg.SessionID, client.ID)
		h.sendTo(client, joinedSession(msg.SessionID))

	case "leave_session":
		h.membership.Leave(msg.SessionID, client.ID)

	case "typing":
		if !h.membership.IsMember(msg.SessionID, client.ID) {
			return
		}
		h.rooms.BroadcastToSessionExcept(msg.SessionID, client.ID, TypingIndicatorEvent{
			Type:         "typing_indicator",
			SessionID:    msg.SessionID,
			IsTyping:     msg.IsTyping,
			ConnectionID: client.ID,
		})

	default:
		// Unknown control types are ignored for forward compatibility.
	}
}

func (h *Handler) sendTo(client *Client, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	client.TrySend(data)
}

func (h *Handler) writePump(client *Client) {
	defer client.conn.Close()
	for data := range client.send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, data); err != nil {
			return
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy Conn.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
