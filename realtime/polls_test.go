package realtime

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"chat-hive/domain"
	apperrors "chat-hive/errors"
	"chat-hive/mocks"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func pollMessage(chatID string, multipleAnswers bool, endTime *time.Time) domain.Message {
	return domain.Message{
		ID:       uuid.New(),
		ChatID:   chatID,
		SenderID: "alice",
		Content:  "Created a poll",
		Poll: &domain.Poll{
			Question:        "Where do we eat?",
			Options:         []domain.PollOption{{Text: "Pizza"}, {Text: "Sushi"}},
			MultipleAnswers: multipleAnswers,
			EndTime:         endTime,
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func newPollCoordinator(t *testing.T) (*PollCoordinator, *mocks.MockIMessageRepository, *mocks.MockIChatRepository, *mocks.MockIBroadcaster) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	messages := mocks.NewMockIMessageRepository(ctrl)
	chats := mocks.NewMockIChatRepository(ctrl)
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	return NewPollCoordinator(log, messages, chats, broadcaster), messages, chats, broadcaster
}

func TestPollCoordinator_ExclusivitySwitchesVote(t *testing.T) {
	req := require.New(t)
	coordinator, messages, chats, broadcaster := newPollCoordinator(t)

	// Given bob already voted for option 0 of a single-answer poll
	message := pollMessage("chat-1", false, nil)
	message.Poll.Options[0].Votes.Add("bob")

	messages.EXPECT().FindMessageByID(message.ID).Return(message, nil)
	messages.EXPECT().SaveMessage(gomock.Any()).Return(nil)
	chats.EXPECT().Members("chat-1").Return([]string{"alice", "bob"}, nil)
	broadcaster.EXPECT().Broadcast([]string{"alice", "bob"}, domain.EventPollVoteUpdated, gomock.Any())

	// When bob votes for option 1
	poll, err := coordinator.Vote(message.ID, 1, "bob")
	req.NoError(err)

	// Then his vote moved: never two selections at once
	req.False(poll.Options[0].Votes.Has("bob"))
	req.True(poll.Options[1].Votes.Has("bob"))
}

func TestPollCoordinator_SecondVoteToggles(t *testing.T) {
	req := require.New(t)
	coordinator, messages, chats, broadcaster := newPollCoordinator(t)

	message := pollMessage("chat-1", false, nil)
	message.Poll.Options[1].Votes.Add("bob")

	messages.EXPECT().FindMessageByID(message.ID).Return(message, nil)
	messages.EXPECT().SaveMessage(gomock.Any()).Return(nil)
	chats.EXPECT().Members("chat-1").Return([]string{"alice", "bob"}, nil)
	broadcaster.EXPECT().Broadcast(gomock.Any(), domain.EventPollVoteUpdated, gomock.Any())

	// When bob votes again for the option he already chose
	poll, err := coordinator.Vote(message.ID, 1, "bob")
	req.NoError(err)

	// Then the vote is retracted
	req.False(poll.Options[1].Votes.Has("bob"))
}

func TestPollCoordinator_MultipleAnswersKeepBothVotes(t *testing.T) {
	req := require.New(t)
	coordinator, messages, chats, broadcaster := newPollCoordinator(t)

	message := pollMessage("chat-1", true, nil)
	message.Poll.Options[0].Votes.Add("bob")

	messages.EXPECT().FindMessageByID(message.ID).Return(message, nil)
	messages.EXPECT().SaveMessage(gomock.Any()).Return(nil)
	chats.EXPECT().Members("chat-1").Return([]string{"alice", "bob"}, nil)
	broadcaster.EXPECT().Broadcast(gomock.Any(), domain.EventPollVoteUpdated, gomock.Any())

	poll, err := coordinator.Vote(message.ID, 1, "bob")
	req.NoError(err)

	req.True(poll.Options[0].Votes.Has("bob"))
	req.True(poll.Options[1].Votes.Has("bob"))
}

func TestPollCoordinator_ClosedPollRejectsVote(t *testing.T) {
	req := require.New(t)
	coordinator, messages, _, _ := newPollCoordinator(t)

	// Given a poll whose end time has elapsed
	message := pollMessage("chat-1", false, lo.ToPtr(time.Now().UTC().Add(-time.Minute)))
	messages.EXPECT().FindMessageByID(message.ID).Return(message, nil)

	_, err := coordinator.Vote(message.ID, 0, "bob")

	// Then nothing is saved or broadcast
	req.ErrorIs(err, apperrors.ErrPollClosed)
}

func TestPollCoordinator_OutOfRangeOptionRejected(t *testing.T) {
	req := require.New(t)
	coordinator, messages, _, _ := newPollCoordinator(t)

	message := pollMessage("chat-1", false, nil)
	messages.EXPECT().FindMessageByID(message.ID).Return(message, nil).Times(2)

	_, err := coordinator.Vote(message.ID, 5, "bob")
	req.ErrorIs(err, apperrors.ErrInvalidOption)

	_, err = coordinator.Vote(message.ID, -1, "bob")
	req.ErrorIs(err, apperrors.ErrInvalidOption)
}

func TestPollCoordinator_NonPollMessageRejected(t *testing.T) {
	req := require.New(t)
	coordinator, messages, _, _ := newPollCoordinator(t)

	message := pollMessage("chat-1", false, nil)
	message.Poll = nil
	messages.EXPECT().FindMessageByID(message.ID).Return(message, nil)

	_, err := coordinator.Vote(message.ID, 0, "bob")
	req.ErrorIs(err, apperrors.ErrPollNotFound)
}

func TestPollCoordinator_ConcurrentVotesAreSerialized(t *testing.T) {
	req := require.New(t)
	coordinator, messages, chats, broadcaster := newPollCoordinator(t)

	// Given a shared stored message mutated through the repository
	message := pollMessage("chat-1", true, nil)
	messageID := message.ID
	var storeMu sync.Mutex

	messages.EXPECT().FindMessageByID(messageID).DoAndReturn(func(uuid.UUID) (domain.Message, error) {
		storeMu.Lock()
		defer storeMu.Unlock()
		return message, nil
	}).AnyTimes()
	messages.EXPECT().SaveMessage(gomock.Any()).DoAndReturn(func(m domain.Message) error {
		storeMu.Lock()
		defer storeMu.Unlock()
		message = m
		return nil
	}).AnyTimes()
	chats.EXPECT().Members("chat-1").Return([]string{"alice", "bob"}, nil).AnyTimes()
	broadcaster.EXPECT().Broadcast(gomock.Any(), domain.EventPollVoteUpdated, gomock.Any()).AnyTimes()

	// When many voters race on the same option
	var wg sync.WaitGroup
	voters := []string{"v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8"}
	for _, voter := range voters {
		wg.Add(1)
		go func(voter string) {
			defer wg.Done()
			_, err := coordinator.Vote(messageID, 0, voter)
			req.NoError(err)
		}(voter)
	}
	wg.Wait()

	// Then no vote is lost to a read-modify-write race
	storeMu.Lock()
	defer storeMu.Unlock()
	req.Len(message.Poll.Options[0].Votes, len(voters))
}
