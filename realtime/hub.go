package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-hive/contract"
	"chat-hive/domain"
	apperrors "chat-hive/errors"
	"chat-hive/moderation"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Hub is the application-facing entry point of the realtime subsystem.
// The transport layer calls it once per inbound event; everything below
// (registry, presence, fan-out, ingestion, vote coordination) is wired in
// here so transports stay thin.
type Hub struct {
	log         *slog.Logger
	registry    contract.IRegistry
	presence    contract.IPresence
	broadcaster contract.IBroadcaster
	ingestor    *Ingestor
	polls       *PollCoordinator
	moderator   *moderation.Moderator
	users       contract.IUserRepository
	chats       contract.IChatRepository
	messages    contract.IMessageRepository
	blobs       contract.BlobStore
}

func NewHub(log *slog.Logger, registry contract.IRegistry, presence contract.IPresence,
	broadcaster contract.IBroadcaster, ingestor *Ingestor, polls *PollCoordinator,
	moderator *moderation.Moderator, users contract.IUserRepository,
	chats contract.IChatRepository, messages contract.IMessageRepository,
	blobs contract.BlobStore) *Hub {
	return &Hub{
		log:         log,
		registry:    registry,
		presence:    presence,
		broadcaster: broadcaster,
		ingestor:    ingestor,
		polls:       polls,
		moderator:   moderator,
		users:       users,
		chats:       chats,
		messages:    messages,
		blobs:       blobs,
	}
}

// Connect binds an authenticated identity to its live connection. A second
// connection for the same identity replaces the first one.
func (h *Hub) Connect(userID string, sink contract.EventSink) {
	h.registry.Register(userID, sink)
	if err := sink.Emit(domain.EventConnectionSuccess, domain.ConnectionSuccessPayload{UserID: userID}); err != nil {
		h.log.Warn("Could not confirm connection", "user_id", userID, "error", err)
	}
}

// Disconnect tears down one connection. The registry entry is removed only
// if it still belongs to this sink, so a reconnect that already replaced it
// is left untouched. The refreshed online list goes to the members of the
// chats the user was joined to, or to every known identity when the user
// was joined nowhere.
func (h *Hub) Disconnect(userID string, sink contract.EventSink) {
	h.registry.Unregister(userID, sink)

	chatIDs := h.presence.Drop(userID)
	audience := h.onlineAudience(chatIDs)
	h.broadcaster.Broadcast(audience, domain.EventOnlineUsers, domain.OnlineUsersPayload(h.presence.Snapshot()))
}

func (h *Hub) onlineAudience(chatIDs []string) []string {
	if len(chatIDs) == 0 {
		return h.registry.Known()
	}
	var audience []string
	for _, chatID := range chatIDs {
		members, err := h.chats.Members(chatID)
		if err != nil {
			h.log.Warn("Could not resolve chat members", "chat_id", chatID, "error", err)
			continue
		}
		audience = append(audience, members...)
	}
	if len(audience) == 0 {
		return h.registry.Known()
	}
	return lo.Uniq(audience)
}

// ChatJoined marks the identity online in a chat and fans the refreshed
// online list out to the given members.
func (h *Hub) ChatJoined(userID, chatID string, members []string) {
	h.presence.Join(userID, chatID)
	h.broadcaster.Broadcast(members, domain.EventOnlineUsers, domain.OnlineUsersPayload(h.presence.Snapshot()))
}

// ChatLeft is the inverse of ChatJoined.
func (h *Hub) ChatLeft(userID, chatID string, members []string) {
	h.presence.Leave(userID, chatID)
	h.broadcaster.Broadcast(members, domain.EventOnlineUsers, domain.OnlineUsersPayload(h.presence.Snapshot()))
}

// StartTyping relays a typing indicator to everyone in the chat but the
// typist.
func (h *Hub) StartTyping(userID, chatID string, members []string) {
	h.broadcaster.BroadcastExcept(members, userID, domain.EventStartTyping, domain.ChatIDPayload{ChatID: chatID})
}

func (h *Hub) StopTyping(userID, chatID string, members []string) {
	h.broadcaster.BroadcastExcept(members, userID, domain.EventStopTyping, domain.ChatIDPayload{ChatID: chatID})
}

// SendMessage runs the ingestion pipeline for one outgoing message: the
// sender and the chat are resolved, the realtime projection is broadcast to
// the other members, and the canonical record is queued for persistence.
func (h *Hub) SendMessage(ctx context.Context, senderID, chatID string, content Content) (domain.RealtimeMessage, error) {
	sender, err := h.users.FindUserByID(senderID)
	if err != nil {
		return domain.RealtimeMessage{}, err
	}
	members, err := h.chats.Members(chatID)
	if err != nil {
		return domain.RealtimeMessage{}, err
	}
	return h.ingestor.Submit(ctx, sender, chatID, members, content)
}

// VotePoll applies one vote mutation and returns the updated poll.
func (h *Hub) VotePoll(messageID uuid.UUID, optionIndex int, voterID string) (domain.Poll, error) {
	return h.polls.Vote(messageID, optionIndex, voterID)
}

// DeleteMessage removes a message and its stored attachments. Only the
// original sender may delete it.
func (h *Hub) DeleteMessage(ctx context.Context, requesterID string, messageID uuid.UUID) error {
	message, err := h.messages.FindMessageByID(messageID)
	if err != nil {
		return err
	}
	if message.SenderID != requesterID {
		return fmt.Errorf("%w: %s", apperrors.ErrNotSender, requesterID)
	}

	if len(message.Attachments) > 0 && h.blobs != nil {
		publicIDs := lo.Map(message.Attachments, func(a domain.Attachment, _ int) string {
			return a.PublicID
		})
		if err := h.blobs.Delete(ctx, publicIDs); err != nil {
			// The document still goes away; orphaned blobs are acceptable.
			h.log.Warn("Could not delete attachments", "message_id", messageID, "error", err)
		}
	}

	if err := h.messages.DeleteMessage(messageID); err != nil {
		return err
	}

	h.notifyChat(message.ChatID, domain.EventMessageDeleted, domain.MessageDeletedPayload{
		MessageID: messageID,
		ChatID:    message.ChatID,
	})
	return nil
}

// EditMessage replaces the text content of a message. Only the original
// sender may edit it, and the new content passes through moderation like a
// fresh message would.
func (h *Hub) EditMessage(requesterID string, messageID uuid.UUID, content string) (domain.Message, error) {
	if content == "" {
		return domain.Message{}, apperrors.ErrEmptyContent
	}

	message, err := h.messages.FindMessageByID(messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if message.SenderID != requesterID {
		return domain.Message{}, fmt.Errorf("%w: %s", apperrors.ErrNotSender, requesterID)
	}

	censored, _ := h.moderator.Censor(content)
	message.Content = censored
	message.UpdatedAt = time.Now().UTC()
	if err := h.messages.SaveMessage(message); err != nil {
		return domain.Message{}, err
	}

	h.notifyChat(message.ChatID, domain.EventMessageEdited, domain.MessageEditedPayload{
		MessageID: messageID,
		ChatID:    message.ChatID,
		Content:   message.Content,
	})
	return message, nil
}

// Notify lets the surrounding application push an arbitrary event to a set
// of identities, e.g. ALERT or REFETCH_CHATS after a membership change.
func (h *Hub) Notify(targets []string, event string, payload any) {
	h.broadcaster.Broadcast(targets, event, payload)
}

func (h *Hub) notifyChat(chatID, event string, payload any) {
	members, err := h.chats.Members(chatID)
	if err != nil {
		h.log.Warn("Could not resolve chat members", "chat_id", chatID, "error", err)
		return
	}
	h.broadcaster.Broadcast(members, event, payload)
}
