package realtime

import (
	"context"
	"log/slog"

	"chat-hive/contract"
	"chat-hive/domain"
)

// PersistWorker drains the persistence queue and writes canonical message
// records. The realtime projection has already been broadcast by the time a
// request reaches this worker, so a write failure is reported only to the
// sender as an error event.
type PersistWorker struct {
	log      *slog.Logger
	messages contract.IMessageRepository
	registry contract.IRegistry
	requests <-chan PersistRequest
}

func NewPersistWorker(log *slog.Logger, messages contract.IMessageRepository,
	registry contract.IRegistry, requests <-chan PersistRequest) *PersistWorker {
	return &PersistWorker{
		log:      log,
		messages: messages,
		registry: registry,
		requests: requests,
	}
}

func (w PersistWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping message persistence")
			return nil
		case request := <-w.requests:
			w.handle(request)
		}
	}
}

func (w PersistWorker) handle(request PersistRequest) {
	err := w.messages.CreateMessage(request.Message)
	if err == nil {
		return
	}
	w.log.Error("Failed to persist message",
		"message_id", request.Message.ID,
		"chat_id", request.Message.ChatID,
		"error", err)

	sink, online := w.registry.Lookup(request.SenderID)
	if !online {
		return
	}
	if err := sink.Emit(domain.EventError, domain.ErrorPayload{Message: "Failed to save message"}); err != nil {
		w.log.Warn("Could not notify sender of persistence failure",
			"sender_id", request.SenderID, "error", err)
	}
}
