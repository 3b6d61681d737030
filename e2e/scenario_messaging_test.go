package e2e

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"chat-hive/auth"
	"chat-hive/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

// The suite runs against a live instance and exercises the wire contract
// end to end: connect, presence, message fan-out. It needs the target's
// signing secret and two user ids that share a chat.
type testMessagingSuite struct {
	suite.Suite
	Config Config
}

func TestMessagingSuite(t *testing.T) {
	suite.Run(t, &testMessagingSuite{})
}

func (s *testMessagingSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	if cfg.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR not set, skipping live scenario")
	}
	s.Config = cfg
}

func (s *testMessagingSuite) dial(userID string) *websocket.Conn {
	token, err := auth.GenerateToken([]byte(s.Config.JWTSecret), userID, time.Hour)
	s.Require().NoError(err)

	url := "ws" + strings.TrimPrefix(s.Config.ServerAddr, "http") + "/ws?access_token=" + token
	conn, _, err := (&websocket.Dialer{HandshakeTimeout: 5 * time.Second}).Dial(url, nil)
	s.Require().NoError(err)
	return conn
}

func (s *testMessagingSuite) awaitEvent(conn *websocket.Conn, event string) json.RawMessage {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		var frame struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		s.Require().NoError(conn.ReadJSON(&frame))
		if frame.Event == event {
			return frame.Payload
		}
	}
}

func (s *testMessagingSuite) TestMessageFanout() {
	sender := s.dial(s.Config.UserID)
	defer sender.Close()
	receiver := s.dial(s.Config.PeerID)
	defer receiver.Close()

	s.Run("Step 1: Both peers are admitted", func() {
		s.awaitEvent(sender, domain.EventConnectionSuccess)
		s.awaitEvent(receiver, domain.EventConnectionSuccess)
	})

	s.Run("Step 2: A message reaches the peer but not the sender", func() {
		content := "e2e probe " + time.Now().UTC().Format(time.RFC3339Nano)
		s.Require().NoError(sender.WriteJSON(map[string]any{
			"event": domain.EventNewMessage,
			"payload": map[string]any{
				"chatId":  s.Config.ChatID,
				"message": content,
			},
		}))

		raw := s.awaitEvent(receiver, domain.EventNewMessage)
		var payload domain.NewMessagePayload
		s.Require().NoError(json.Unmarshal(raw, &payload))
		s.Require().Equal(content, payload.Message.Content)
		s.Require().Equal(s.Config.UserID, payload.Message.Sender.ID)

		s.awaitEvent(receiver, domain.EventNewMessageAlert)
	})
}
