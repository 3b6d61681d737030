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

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var validate = validator.New()

// PollSpec is the poll-creation content variant before it becomes a Poll.
type PollSpec struct {
	Question        string   `json:"question" validate:"required"`
	Options         []string `json:"options" validate:"required,min=2,max=10,dive,required"`
	MultipleAnswers bool     `json:"multipleAnswers"`
	DurationMinutes int      `json:"duration" validate:"gte=0"`
}

// Content is the outgoing content variant: exactly one of plain text,
// attachments, location, or poll creation.
type Content struct {
	Text        string
	Attachments []domain.Attachment
	Location    *domain.Location
	Poll        *PollSpec
}

// PersistRequest travels from the ingestion pipeline to the persist workers.
type PersistRequest struct {
	Message  domain.Message
	SenderID string
}

// Ingestor accepts an outgoing message, builds the ephemeral realtime
// projection, broadcasts it, and queues the canonical record for
// asynchronous persistence. Broadcast happens before the durable write:
// perceived responsiveness is prioritized over write-durability visibility,
// and a persistence failure is reported only to the sender afterwards.
type Ingestor struct {
	log         *slog.Logger
	broadcaster contract.IBroadcaster
	moderator   *moderation.Moderator
	persist     chan<- PersistRequest
}

func NewIngestor(log *slog.Logger, broadcaster contract.IBroadcaster,
	moderator *moderation.Moderator, persist chan<- PersistRequest) *Ingestor {
	return &Ingestor{
		log:         log,
		broadcaster: broadcaster,
		moderator:   moderator,
		persist:     persist,
	}
}

// Submit runs the ingestion pipeline for one outgoing message. The returned
// projection is what the chat members just received.
func (i *Ingestor) Submit(ctx context.Context, sender domain.User, chatID string,
	members []string, content Content) (domain.RealtimeMessage, error) {
	if err := ctx.Err(); err != nil {
		return domain.RealtimeMessage{}, err
	}

	message, err := i.buildMessage(sender, chatID, content)
	if err != nil {
		return domain.RealtimeMessage{}, err
	}

	// The projection carries a transient id: the realtime copy is emitted
	// before the durable write completes and cannot know the persisted id.
	projection := domain.RealtimeMessage{
		ID:          uuid.NewString(),
		Content:     message.Content,
		Attachments: message.Attachments,
		Location:    message.Location,
		Poll:        message.Poll,
		Sender:      domain.MessageSender{ID: sender.ID, Name: sender.Name},
		ChatID:      chatID,
		CreatedAt:   message.CreatedAt,
	}

	i.broadcaster.BroadcastExcept(members, sender.ID, domain.EventNewMessage, domain.NewMessagePayload{
		ChatID:  chatID,
		Message: projection,
	})
	i.broadcaster.BroadcastExcept(members, sender.ID, domain.EventNewMessageAlert, domain.ChatIDPayload{
		ChatID: chatID,
	})

	select {
	case i.persist <- PersistRequest{Message: message, SenderID: sender.ID}:
	default:
		// The realtime copy is already out; only the durable write is lost.
		i.log.Warn("Persistence queue full, dropping durable write",
			"chat_id", chatID, "sender_id", sender.ID)
		return projection, apperrors.ErrPersistQueueFull
	}

	return projection, nil
}

func (i *Ingestor) buildMessage(sender domain.User, chatID string, content Content) (domain.Message, error) {
	now := time.Now().UTC()
	message := domain.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  sender.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch {
	case content.Poll != nil:
		poll, err := i.buildPoll(*content.Poll, now)
		if err != nil {
			return domain.Message{}, err
		}
		message.Content = "Created a poll"
		message.Poll = &poll
	case content.Location != nil:
		location := *content.Location
		if location.Timestamp.IsZero() {
			location.Timestamp = now
		}
		message.Content = "Shared a location"
		message.Location = &location
	case len(content.Attachments) > 0:
		message.Content = content.Text
		message.Attachments = content.Attachments
	case content.Text != "":
		censored, found := i.moderator.Censor(content.Text)
		if len(found) > 0 {
			i.log.Info("Censored outgoing message",
				"sender_id", sender.ID,
				"lang", moderation.Language(content.Text),
				"words", len(found))
		}
		message.Content = censored
	default:
		return domain.Message{}, apperrors.ErrEmptyContent
	}

	return message, nil
}

func (i *Ingestor) buildPoll(spec PollSpec, now time.Time) (domain.Poll, error) {
	if err := validate.Struct(spec); err != nil {
		return domain.Poll{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidPoll, err)
	}

	var endTime *time.Time
	if spec.DurationMinutes > 0 {
		endTime = lo.ToPtr(now.Add(time.Duration(spec.DurationMinutes) * time.Minute))
	}

	return domain.Poll{
		Question: spec.Question,
		Options: lo.Map(spec.Options, func(text string, _ int) domain.PollOption {
			return domain.PollOption{Text: text, Votes: domain.VoterSet{}}
		}),
		MultipleAnswers: spec.MultipleAnswers,
		EndTime:         endTime,
	}, nil
}
