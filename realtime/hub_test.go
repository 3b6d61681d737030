package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-hive/domain"
	apperrors "chat-hive/errors"
	"chat-hive/mocks"
	"chat-hive/moderation"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type hubFixture struct {
	hub      *Hub
	registry *Registry
	messages *mocks.MockIMessageRepository
	users    *mocks.MockIUserRepository
	chats    *mocks.MockIChatRepository
	blobs    *mocks.MockBlobStore
	persist  chan PersistRequest
}

func newHubFixture(t *testing.T) hubFixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	messages := mocks.NewMockIMessageRepository(ctrl)
	users := mocks.NewMockIUserRepository(ctrl)
	chats := mocks.NewMockIChatRepository(ctrl)
	blobs := mocks.NewMockBlobStore(ctrl)

	registry := NewRegistry(log)
	presence := NewPresence()
	broadcaster := NewBroadcaster(log, registry, nil)
	moderator, err := moderation.NewModerator([]string{"idiot"}, '*')
	require.NoError(t, err)

	persist := make(chan PersistRequest, 8)
	ingestor := NewIngestor(log, broadcaster, &moderator, persist)
	polls := NewPollCoordinator(log, messages, chats, broadcaster)

	hub := NewHub(log, registry, presence, broadcaster, ingestor, polls,
		&moderator, users, chats, messages, blobs)

	return hubFixture{
		hub:      hub,
		registry: registry,
		messages: messages,
		users:    users,
		chats:    chats,
		blobs:    blobs,
		persist:  persist,
	}
}

func TestHub_ConnectConfirmsAndRegisters(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mocks.NewMockEventSink(ctrl)
	sink.EXPECT().
		Emit(domain.EventConnectionSuccess, domain.ConnectionSuccessPayload{UserID: "alice"}).
		Return(nil).Times(1)

	f.hub.Connect("alice", sink)

	_, online := f.registry.Lookup("alice")
	req.True(online)
}

func TestHub_DisconnectScopesOnlineBroadcastToJoinedChats(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	aliceSink := mocks.NewMockEventSink(ctrl)
	bobSink := mocks.NewMockEventSink(ctrl)
	carolSink := mocks.NewMockEventSink(ctrl)

	aliceSink.EXPECT().Emit(domain.EventConnectionSuccess, gomock.Any()).Return(nil)
	bobSink.EXPECT().Emit(domain.EventConnectionSuccess, gomock.Any()).Return(nil)
	carolSink.EXPECT().Emit(domain.EventConnectionSuccess, gomock.Any()).Return(nil)

	f.hub.Connect("alice", aliceSink)
	f.hub.Connect("bob", bobSink)
	f.hub.Connect("carol", carolSink)

	// Given alice and bob share chat-1, carol is elsewhere
	bobSink.EXPECT().Emit(domain.EventOnlineUsers, gomock.Any()).Return(nil).AnyTimes()
	aliceSink.EXPECT().Emit(domain.EventOnlineUsers, gomock.Any()).Return(nil).AnyTimes()
	f.hub.ChatJoined("alice", "chat-1", []string{"alice", "bob"})
	f.hub.ChatJoined("bob", "chat-1", []string{"alice", "bob"})

	// When alice disconnects
	f.chats.EXPECT().Members("chat-1").Return([]string{"alice", "bob"}, nil)

	// Then only chat-1 members get the refreshed online list; carol hears nothing
	f.hub.Disconnect("alice", aliceSink)

	_, online := f.registry.Lookup("alice")
	req.False(online)
}

func TestHub_TypingExcludesTypist(t *testing.T) {
	f := newHubFixture(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	aliceSink := mocks.NewMockEventSink(ctrl)
	bobSink := mocks.NewMockEventSink(ctrl)
	f.registry.Register("alice", aliceSink)
	f.registry.Register("bob", bobSink)

	// Then only bob receives the indicator
	bobSink.EXPECT().
		Emit(domain.EventStartTyping, domain.ChatIDPayload{ChatID: "chat-1"}).
		Return(nil).Times(1)

	f.hub.StartTyping("alice", "chat-1", []string{"alice", "bob"})

	bobSink.EXPECT().
		Emit(domain.EventStopTyping, domain.ChatIDPayload{ChatID: "chat-1"}).
		Return(nil).Times(1)

	f.hub.StopTyping("alice", "chat-1", []string{"alice", "bob"})
}

func TestHub_SendMessageReachesOtherMembersAndQueue(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bobSink := mocks.NewMockEventSink(ctrl)
	f.registry.Register("bob", bobSink)

	f.users.EXPECT().FindUserByID("alice").Return(domain.User{ID: "alice", Name: "Alice"}, nil)
	f.chats.EXPECT().Members("chat-1").Return([]string{"alice", "bob"}, nil)

	// Then bob gets the projection and the alert, alice gets neither
	bobSink.EXPECT().Emit(domain.EventNewMessage, gomock.Any()).Return(nil).Times(1)
	bobSink.EXPECT().Emit(domain.EventNewMessageAlert, domain.ChatIDPayload{ChatID: "chat-1"}).Return(nil).Times(1)

	projection, err := f.hub.SendMessage(context.Background(), "alice", "chat-1", Content{Text: "hello"})
	req.NoError(err)
	req.Equal("hello", projection.Content)

	request := <-f.persist
	req.Equal("alice", request.SenderID)
}

func TestHub_SendMessageUnknownChat(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)

	f.users.EXPECT().FindUserByID("alice").Return(domain.User{ID: "alice"}, nil)
	f.chats.EXPECT().Members("nope").Return(nil, apperrors.ErrChatNotFound)

	_, err := f.hub.SendMessage(context.Background(), "alice", "nope", Content{Text: "hello"})
	req.ErrorIs(err, apperrors.ErrChatNotFound)
}

func TestHub_DeleteMessageSenderOnly(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)

	message := domain.Message{ID: uuid.New(), ChatID: "chat-1", SenderID: "alice", Content: "hello"}
	f.messages.EXPECT().FindMessageByID(message.ID).Return(message, nil)

	// When someone else tries to delete it
	err := f.hub.DeleteMessage(context.Background(), "bob", message.ID)

	req.ErrorIs(err, apperrors.ErrNotSender)
}

func TestHub_DeleteMessageRemovesAttachments(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)

	message := domain.Message{
		ID:       uuid.New(),
		ChatID:   "chat-1",
		SenderID: "alice",
		Attachments: []domain.Attachment{
			{PublicID: "blob-1", URL: "https://cdn/blob-1"},
			{PublicID: "blob-2", URL: "https://cdn/blob-2"},
		},
	}

	f.messages.EXPECT().FindMessageByID(message.ID).Return(message, nil)
	f.blobs.EXPECT().Delete(gomock.Any(), []string{"blob-1", "blob-2"}).Return(nil)
	f.messages.EXPECT().DeleteMessage(message.ID).Return(nil)
	f.chats.EXPECT().Members("chat-1").Return([]string{"alice", "bob"}, nil)

	err := f.hub.DeleteMessage(context.Background(), "alice", message.ID)
	req.NoError(err)
}

func TestHub_EditMessageModeratesNewContent(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)

	message := domain.Message{
		ID:        uuid.New(),
		ChatID:    "chat-1",
		SenderID:  "alice",
		Content:   "hello",
		UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}

	f.messages.EXPECT().FindMessageByID(message.ID).Return(message, nil)

	var saved domain.Message
	f.messages.EXPECT().SaveMessage(gomock.Any()).DoAndReturn(func(m domain.Message) error {
		saved = m
		return nil
	})
	f.chats.EXPECT().Members("chat-1").Return([]string{"alice", "bob"}, nil)

	edited, err := f.hub.EditMessage("alice", message.ID, "you are an idiot")
	req.NoError(err)

	// Then the replacement passed through moderation and bumped UpdatedAt
	req.Equal("you are an *****", edited.Content)
	req.Equal(saved.Content, edited.Content)
	req.True(saved.UpdatedAt.After(message.UpdatedAt))
}

func TestHub_EditMessageSenderOnly(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)

	message := domain.Message{ID: uuid.New(), ChatID: "chat-1", SenderID: "alice", Content: "hello"}
	f.messages.EXPECT().FindMessageByID(message.ID).Return(message, nil)

	_, err := f.hub.EditMessage("bob", message.ID, "hijacked")
	req.ErrorIs(err, apperrors.ErrNotSender)
}
