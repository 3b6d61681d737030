package domain

import "github.com/google/uuid"

// Wire-level event names. Outbound events are emitted to resolved
// connections; inbound events arrive on a connection's read loop.
const (
	EventNewMessage      = "NEW_MESSAGE"
	EventNewMessageAlert = "NEW_MESSAGE_ALERT"
	EventStartTyping     = "START_TYPING"
	EventStopTyping      = "STOP_TYPING"
	EventChatJoined      = "CHAT_JOINED"
	EventChatLeaved      = "CHAT_LEAVED"
	EventOnlineUsers     = "ONLINE_USERS"
	EventAlert           = "ALERT"
	EventRefetchChats    = "REFETCH_CHATS"
	EventMessageDeleted  = "MESSAGE_DELETED"
	EventMessageEdited   = "MESSAGE_EDITED"
	EventPollVoteUpdated = "POLL_VOTE_UPDATED"
	EventNewRequest      = "NEW_REQUEST"
	EventVotePoll        = "VOTE_POLL"

	// Lowercase for client compatibility.
	EventConnectionSuccess = "connection_success"
	EventError             = "error"
)

type NewMessagePayload struct {
	ChatID  string          `json:"chatId"`
	Message RealtimeMessage `json:"message"`
}

type ChatIDPayload struct {
	ChatID string `json:"chatId"`
}

type OnlineUsersPayload []string

type AlertPayload struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId,omitempty"`
}

type MessageDeletedPayload struct {
	MessageID uuid.UUID `json:"messageId"`
	ChatID    string    `json:"chatId"`
}

type MessageEditedPayload struct {
	MessageID uuid.UUID `json:"messageId"`
	ChatID    string    `json:"chatId"`
	Content   string    `json:"content"`
}

type PollVoteUpdatedPayload struct {
	MessageID uuid.UUID `json:"messageId"`
	Poll      Poll      `json:"poll"`
	ChatID    string    `json:"chatId"`
}

type ConnectionSuccessPayload struct {
	UserID string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
