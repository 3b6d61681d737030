package ws

import (
	"chat-hive/domain"
	"chat-hive/realtime"
)

// Inbound payload shapes. The client supplies the member list for presence
// and typing events; the server resolves it from the chat store for
// anything that mutates state.

type chatPresencePayload struct {
	ChatID  string   `json:"chatId" validate:"required"`
	Members []string `json:"members" validate:"required,min=1"`
}

type typingPayload struct {
	ChatID  string   `json:"chatId" validate:"required"`
	Members []string `json:"members" validate:"required,min=1"`
}

type newMessagePayload struct {
	ChatID      string              `json:"chatId" validate:"required"`
	Message     string              `json:"message"`
	Attachments []domain.Attachment `json:"attachments"`
	Location    *domain.Location    `json:"location"`
	Poll        *realtime.PollSpec  `json:"poll"`
}

type votePollPayload struct {
	MessageID   string `json:"messageId" validate:"required,uuid"`
	OptionIndex int    `json:"optionIndex" validate:"gte=0"`
}

func (p newMessagePayload) content() realtime.Content {
	return realtime.Content{
		Text:        p.Message,
		Attachments: p.Attachments,
		Location:    p.Location,
		Poll:        p.Poll,
	}
}
