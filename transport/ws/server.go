package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chat-hive/auth"
	"chat-hive/domain"
	apperrors "chat-hive/errors"
	"chat-hive/realtime"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// CredentialCookie is where browser clients carry the signed token. Query
// fallback exists for clients that cannot set cookies on a ws dial.
const (
	CredentialCookie = "chat-hive-token"
	CredentialQuery  = "access_token"
)

type Server struct {
	log            *slog.Logger
	gate           *auth.Gate
	hub            *realtime.Hub
	upgrader       websocket.Upgrader
	validate       *validator.Validate
	sendBufferSize int
}

func NewServer(log *slog.Logger, gate *auth.Gate, hub *realtime.Hub, sendBufferSize int) *Server {
	return &Server{
		log:  log,
		gate: gate,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		validate:       validator.New(),
		sendBufferSize: sendBufferSize,
	}
}

// HandleWS authenticates the request, upgrades it, and runs the connection's
// read loop until the peer goes away. Authentication failures are rejected
// before the upgrade so the client sees a plain 401.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	user, err := s.gate.Admit(credential(r))
	if err != nil {
		s.log.Debug("Connection rejected", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "user_id", user.ID, "error", err)
		return
	}

	conn := newConn(s.log, socket, s.sendBufferSize)
	go conn.writeLoop()

	s.hub.Connect(user.ID, conn)
	s.log.Info("User connected", "user_id", user.ID)

	s.readLoop(user, conn, socket)

	conn.Close()
	s.hub.Disconnect(user.ID, conn)
	s.log.Info("User disconnected", "user_id", user.ID)
}

func credential(r *http.Request) string {
	if cookie, err := r.Cookie(CredentialCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get(CredentialQuery)
}

func (s *Server) readLoop(user domain.User, conn *Conn, socket *websocket.Conn) {
	socket.SetReadLimit(readLimit)
	_ = socket.SetReadDeadline(time.Now().Add(2 * pingInterval))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(2 * pingInterval))
	})

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("Read failed", "user_id", user.ID, "error", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.reject(conn, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err))
			continue
		}
		if err := s.dispatch(user, conn, env); err != nil {
			s.reject(conn, err)
		}
	}
}

// dispatch routes one inbound event to the hub. Unknown event names are an
// error back to the peer, not a dropped frame, so client bugs surface.
func (s *Server) dispatch(user domain.User, conn *Conn, env envelope) error {
	switch env.Event {
	case domain.EventNewMessage:
		var p newMessagePayload
		if err := s.decode(env.Payload, &p); err != nil {
			return err
		}
		_, err := s.hub.SendMessage(conn.requestContext(), user.ID, p.ChatID, p.content())
		return err

	case domain.EventVotePoll:
		var p votePollPayload
		if err := s.decode(env.Payload, &p); err != nil {
			return err
		}
		messageID, err := uuid.Parse(p.MessageID)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
		}
		_, err = s.hub.VotePoll(messageID, p.OptionIndex, user.ID)
		return err

	case domain.EventChatJoined:
		var p chatPresencePayload
		if err := s.decode(env.Payload, &p); err != nil {
			return err
		}
		s.hub.ChatJoined(user.ID, p.ChatID, p.Members)
		return nil

	case domain.EventChatLeaved:
		var p chatPresencePayload
		if err := s.decode(env.Payload, &p); err != nil {
			return err
		}
		s.hub.ChatLeft(user.ID, p.ChatID, p.Members)
		return nil

	case domain.EventStartTyping:
		var p typingPayload
		if err := s.decode(env.Payload, &p); err != nil {
			return err
		}
		s.hub.StartTyping(user.ID, p.ChatID, p.Members)
		return nil

	case domain.EventStopTyping:
		var p typingPayload
		if err := s.decode(env.Payload, &p); err != nil {
			return err
		}
		s.hub.StopTyping(user.ID, p.ChatID, p.Members)
		return nil

	default:
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownEvent, env.Event)
	}
}

func (s *Server) decode(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	return nil
}

// reject reports a handler failure back to the offending peer only.
func (s *Server) reject(conn *Conn, err error) {
	if emitErr := conn.Emit(domain.EventError, domain.ErrorPayload{Message: userFacing(err)}); emitErr != nil {
		s.log.Debug("Could not report error to peer", "error", emitErr)
	}
}

// userFacing keeps internal detail out of the frame sent to the client.
func userFacing(err error) string {
	for _, known := range []error{
		apperrors.ErrInvalidPayload,
		apperrors.ErrUnknownEvent,
		apperrors.ErrEmptyContent,
		apperrors.ErrInvalidPoll,
		apperrors.ErrPollNotFound,
		apperrors.ErrPollClosed,
		apperrors.ErrInvalidOption,
		apperrors.ErrChatNotFound,
		apperrors.ErrMessageNotFound,
		apperrors.ErrNotSender,
		apperrors.ErrPersistQueueFull,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal error"
}
