package realtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-hive/contract"
	"chat-hive/domain"
	apperrors "chat-hive/errors"

	"github.com/google/uuid"
)

// PollCoordinator applies vote mutations with exclusivity and toggle
// semantics. All mutations for a given message are serialized through a
// per-message lock, so two racing voters cannot both read the old voter
// sets and lose an update.
type PollCoordinator struct {
	log         *slog.Logger
	messages    contract.IMessageRepository
	chats       contract.IChatRepository
	broadcaster contract.IBroadcaster

	mu    sync.Mutex
	locks map[uuid.UUID]*pollLock

	now func() time.Time
}

type pollLock struct {
	mu   sync.Mutex
	refs int
}

func NewPollCoordinator(log *slog.Logger, messages contract.IMessageRepository,
	chats contract.IChatRepository, broadcaster contract.IBroadcaster) *PollCoordinator {
	return &PollCoordinator{
		log:         log,
		messages:    messages,
		chats:       chats,
		broadcaster: broadcaster,
		locks:       make(map[uuid.UUID]*pollLock),
		now:         time.Now,
	}
}

// Vote casts, retracts, or switches a vote on the referenced poll message.
// The poll's closed state is evaluated lazily against the current time;
// there is no background timer. On success the full updated poll is
// broadcast to the chat's member list.
func (c *PollCoordinator) Vote(messageID uuid.UUID, optionIndex int, voterID string) (domain.Poll, error) {
	unlock := c.acquire(messageID)
	defer unlock()

	message, err := c.messages.FindMessageByID(messageID)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("%w: %s", apperrors.ErrPollNotFound, messageID)
	}
	if message.Poll == nil {
		return domain.Poll{}, fmt.Errorf("%w: message %s has no poll", apperrors.ErrPollNotFound, messageID)
	}

	poll := message.Poll
	if poll.Closed(c.now()) {
		return domain.Poll{}, apperrors.ErrPollClosed
	}
	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return domain.Poll{}, fmt.Errorf("%w: %d", apperrors.ErrInvalidOption, optionIndex)
	}

	// Single-answer polls: clear the voter from every other option first,
	// so switching choice is one call that never leaves two selections.
	if !poll.MultipleAnswers {
		for i := range poll.Options {
			if i != optionIndex {
				poll.Options[i].Votes.Remove(voterID)
			}
		}
	}

	// Toggle: a second vote on the same option retracts it.
	selected := &poll.Options[optionIndex]
	if selected.Votes.Has(voterID) {
		selected.Votes.Remove(voterID)
	} else {
		selected.Votes.Add(voterID)
	}

	if err := c.messages.SaveMessage(message); err != nil {
		return domain.Poll{}, err
	}

	members, err := c.chats.Members(message.ChatID)
	if err != nil {
		c.log.Warn("Vote persisted but member list unavailable, skipping broadcast",
			"chat_id", message.ChatID, "error", err)
		return *poll, nil
	}

	c.broadcaster.Broadcast(members, domain.EventPollVoteUpdated, domain.PollVoteUpdatedPayload{
		MessageID: messageID,
		Poll:      *poll,
		ChatID:    message.ChatID,
	})

	return *poll, nil
}

// acquire serializes on the message id. Lock entries are reference-counted
// and removed once the last holder releases, so the map stays bounded by
// the number of in-flight votes.
func (c *PollCoordinator) acquire(messageID uuid.UUID) func() {
	c.mu.Lock()
	l, ok := c.locks[messageID]
	if !ok {
		l = &pollLock{}
		c.locks[messageID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, messageID)
		}
		c.mu.Unlock()
	}
}
