package http

import (
	"encoding/json"
	"net/http"

	"sheet-quiz/internal/app"
	"sheet-quiz/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SessionFactory creates the session owned by one connection.
type SessionFactory func() *app.Session

// WSHandler drives one quiz session per WebSocket connection. Messages of a
// connection are handled one at a time, so no input is processed while the
// questions are being fetched.
type WSHandler struct {
	newSession SessionFactory
	log        *zap.Logger
	upgrader   websocket.Upgrader
}

func NewWSHandler(newSession SessionFactory, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		newSession: newSession,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type loginPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type answerPayload struct {
	Labels []domain.Label `json:"labels"`
}

type reviewPayload struct {
	Show bool `json:"show"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into a fresh session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session := h.newSession()
	log := h.log.With(zap.String("session", session.ID()))
	log.Debug("connection opened", zap.String("remote", r.RemoteAddr))

	if err := h.writeView(conn, session); err != nil {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("ws read error", zap.Error(err))
			}
			return
		}

		if err := h.handle(r, session, inbound); err != nil {
			msg := outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: app.UserMessage(err)}}
			if werr := conn.WriteJSON(msg); werr != nil {
				log.Warn("ws write error", zap.Error(werr))
				return
			}
		}
		if err := h.writeView(conn, session); err != nil {
			log.Warn("ws write error", zap.Error(err))
			return
		}
	}
}

func (h *WSHandler) handle(r *http.Request, session *app.Session, inbound inboundMessage) error {
	ctx := r.Context()
	switch inbound.Type {
	case "login":
		var payload loginPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.Login(ctx, payload.Name, payload.Email)
	case "begin":
		return session.Begin(ctx)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.Answer(ctx, payload.Labels)
	case "review":
		var payload reviewPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return errInvalidPayload
			}
		}
		if payload.Show {
			return session.ShowReview()
		}
		return session.HideReview()
	case "restart":
		session.Restart()
		return nil
	default:
		return errUnsupported
	}
}

func (h *WSHandler) writeView(conn *websocket.Conn, session *app.Session) error {
	return conn.WriteJSON(outboundMessage[app.ViewModel]{Type: "view", Payload: session.View()})
}

type protocolError string

func (e protocolError) Error() string { return string(e) }

const (
	errInvalidPayload protocolError = "invalid payload"
	errUnsupported    protocolError = "unsupported message type"
)
