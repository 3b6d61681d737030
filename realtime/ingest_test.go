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

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newIngestor(t *testing.T, persist chan PersistRequest) (*Ingestor, *mocks.MockIBroadcaster) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	moderator, err := moderation.NewModerator([]string{"idiot"}, '*')
	require.NoError(t, err)

	return NewIngestor(log, broadcaster, &moderator, persist), broadcaster
}

func TestIngestor_BroadcastsBeforePersisting(t *testing.T) {
	req := require.New(t)
	persist := make(chan PersistRequest, 1)
	ingestor, broadcaster := newIngestor(t, persist)

	sender := domain.User{ID: "alice", Name: "Alice"}
	members := []string{"alice", "bob", "carol"}

	// Then the sender's own connection is excluded from both events
	broadcaster.EXPECT().
		BroadcastExcept(members, "alice", domain.EventNewMessage, gomock.Any()).
		Times(1)
	broadcaster.EXPECT().
		BroadcastExcept(members, "alice", domain.EventNewMessageAlert, domain.ChatIDPayload{ChatID: "chat-1"}).
		Times(1)

	// When a plain text message is submitted
	projection, err := ingestor.Submit(context.Background(), sender, "chat-1", members, Content{Text: "hello"})
	req.NoError(err)

	req.Equal("hello", projection.Content)
	req.Equal("chat-1", projection.ChatID)
	req.Equal(domain.MessageSender{ID: "alice", Name: "Alice"}, projection.Sender)
	req.NotEmpty(projection.ID)

	// Then the canonical record is queued with its own persisted id
	request := <-persist
	req.Equal("hello", request.Message.Content)
	req.Equal("alice", request.SenderID)
	req.NotEqual(projection.ID, request.Message.ID.String())
}

func TestIngestor_CensorsTextContent(t *testing.T) {
	req := require.New(t)
	persist := make(chan PersistRequest, 1)
	ingestor, broadcaster := newIngestor(t, persist)

	broadcaster.EXPECT().BroadcastExcept(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Times(2)

	projection, err := ingestor.Submit(context.Background(),
		domain.User{ID: "alice", Name: "Alice"}, "chat-1", []string{"alice", "bob"},
		Content{Text: "you are an idiot"})
	req.NoError(err)

	req.Equal("you are an *****", projection.Content)
	req.Equal("you are an *****", (<-persist).Message.Content)
}

func TestIngestor_EmptyContentRejected(t *testing.T) {
	req := require.New(t)
	ingestor, _ := newIngestor(t, make(chan PersistRequest, 1))

	_, err := ingestor.Submit(context.Background(),
		domain.User{ID: "alice"}, "chat-1", []string{"alice", "bob"}, Content{})

	req.ErrorIs(err, apperrors.ErrEmptyContent)
}

func TestIngestor_PollSpecValidation(t *testing.T) {
	req := require.New(t)
	persist := make(chan PersistRequest, 1)
	ingestor, broadcaster := newIngestor(t, persist)

	sender := domain.User{ID: "alice", Name: "Alice"}
	members := []string{"alice", "bob"}

	// Given a single-option poll
	_, err := ingestor.Submit(context.Background(), sender, "chat-1", members, Content{
		Poll: &PollSpec{Question: "Best option?", Options: []string{"only one"}},
	})
	req.ErrorIs(err, apperrors.ErrInvalidPoll)

	// Given a poll without a question
	_, err = ingestor.Submit(context.Background(), sender, "chat-1", members, Content{
		Poll: &PollSpec{Options: []string{"a", "b"}},
	})
	req.ErrorIs(err, apperrors.ErrInvalidPoll)

	// Given a valid timed poll
	broadcaster.EXPECT().BroadcastExcept(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Times(2)
	projection, err := ingestor.Submit(context.Background(), sender, "chat-1", members, Content{
		Poll: &PollSpec{Question: "Where?", Options: []string{"Pizza", "Sushi"}, DurationMinutes: 30},
	})
	req.NoError(err)

	req.Equal("Created a poll", projection.Content)
	req.Len(projection.Poll.Options, 2)
	req.NotNil(projection.Poll.EndTime)
	req.WithinDuration(time.Now().UTC().Add(30*time.Minute), *projection.Poll.EndTime, 5*time.Second)
	<-persist
}

func TestIngestor_FullQueueDropsDurableWriteOnly(t *testing.T) {
	req := require.New(t)
	// Given a persistence queue with no room left
	persist := make(chan PersistRequest)
	ingestor, broadcaster := newIngestor(t, persist)

	// Then the realtime copy still goes out
	broadcaster.EXPECT().BroadcastExcept(gomock.Any(), "alice", gomock.Any(), gomock.Any()).Times(2)

	projection, err := ingestor.Submit(context.Background(),
		domain.User{ID: "alice", Name: "Alice"}, "chat-1", []string{"alice", "bob"},
		Content{Text: "hello"})

	req.ErrorIs(err, apperrors.ErrPersistQueueFull)
	req.Equal("hello", projection.Content)
}
