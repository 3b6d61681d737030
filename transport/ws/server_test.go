package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-hive/auth"
	"chat-hive/domain"
	"chat-hive/moderation"
	"chat-hive/realtime"
	"chat-hive/repositories"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("integration-test-secret")

type testStack struct {
	server   *httptest.Server
	messages repositories.MessageRepository
}

// newTestStack wires the full realtime pipeline against a throwaway badger
// store and serves it over a real websocket endpoint.
func newTestStack(t *testing.T) testStack {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db)
	chats := repositories.NewChatRepository(db)
	messages := repositories.NewMessageRepository(db, log, nil)

	require.NoError(t, users.CreateUser(domain.User{ID: "alice", Name: "Alice", Username: "alice"}))
	require.NoError(t, users.CreateUser(domain.User{ID: "bob", Name: "Bob", Username: "bob"}))
	require.NoError(t, chats.CreateChat(domain.Chat{
		ID: "chat-1", Name: "general", GroupChat: true,
		Creator: "alice", Members: []string{"alice", "bob"},
	}))

	registry := realtime.NewRegistry(log)
	presence := realtime.NewPresence()
	broadcaster := realtime.NewBroadcaster(log, registry, nil)
	moderator, err := moderation.NewModerator([]string{"idiot"}, '*')
	require.NoError(t, err)

	persist := make(chan realtime.PersistRequest, 16)
	ingestor := realtime.NewIngestor(log, broadcaster, &moderator, persist)
	polls := realtime.NewPollCoordinator(log, messages, chats, broadcaster)
	hub := realtime.NewHub(log, registry, presence, broadcaster, ingestor, polls,
		&moderator, users, chats, messages, nil)

	worker := realtime.NewPersistWorker(log, messages, registry, persist)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = worker.Run(ctx) }()

	gate := auth.NewGate(testSecret, users, log)
	wsServer := NewServer(log, gate, hub, 16)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsServer.HandleWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return testStack{server: server, messages: messages}
}

func dial(t *testing.T, stack testStack, userID string) *websocketClient {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(stack.server.URL, "http") + "/ws?access_token=" + token
	return dialURL(t, url)
}

func TestServer_RejectsMissingCredential(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	url := "ws" + strings.TrimPrefix(stack.server.URL, "http") + "/ws"
	_, resp, err := defaultDialer().Dial(url, nil)

	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_ConnectionSuccessOnValidToken(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := dial(t, stack, "alice")

	f := alice.read(t)
	req.Equal(domain.EventConnectionSuccess, f.Event)
	req.JSONEq(`{"userId":"alice"}`, string(f.Payload))
}

func TestServer_TypingExcludesTypist(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := dial(t, stack, "alice")
	bob := dial(t, stack, "bob")
	alice.expect(t, domain.EventConnectionSuccess)
	bob.expect(t, domain.EventConnectionSuccess)

	// When alice starts typing
	alice.write(t, domain.EventStartTyping, map[string]any{
		"chatId":  "chat-1",
		"members": []string{"alice", "bob"},
	})

	// Then bob sees the indicator and alice hears nothing back
	f := bob.read(t)
	req.Equal(domain.EventStartTyping, f.Event)
	alice.expectSilence(t)
}

func TestServer_NewMessageReachesOtherMemberAndPersists(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := dial(t, stack, "alice")
	bob := dial(t, stack, "bob")
	alice.expect(t, domain.EventConnectionSuccess)
	bob.expect(t, domain.EventConnectionSuccess)

	alice.write(t, domain.EventNewMessage, map[string]any{
		"chatId":  "chat-1",
		"message": "hello bob",
	})

	// Then bob receives the projection followed by the chat alert
	f := bob.read(t)
	req.Equal(domain.EventNewMessage, f.Event)
	var payload domain.NewMessagePayload
	req.NoError(json.Unmarshal(f.Payload, &payload))
	req.Equal("hello bob", payload.Message.Content)
	req.Equal("alice", payload.Message.Sender.ID)

	f = bob.read(t)
	req.Equal(domain.EventNewMessageAlert, f.Event)

	// Then the sender's own connection got neither frame
	alice.expectSilence(t)

	// Then the canonical record lands in the store
	req.Eventually(func() bool {
		stored, _, err := stack.messages.GetMessages("chat-1", nil)
		return err == nil && len(stored) == 1 && stored[0].Content == "hello bob"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServer_UnknownEventReportsError(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := dial(t, stack, "alice")
	alice.expect(t, domain.EventConnectionSuccess)

	alice.write(t, "NOT_A_THING", map[string]any{})

	f := alice.read(t)
	req.Equal(domain.EventError, f.Event)
}
