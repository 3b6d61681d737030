package realtime

import (
	"log/slog"

	"chat-hive/contract"
)

// Broadcaster resolves target identities through the registry and emits a
// typed event to each live connection independently. Delivery is
// at-most-once, best-effort: offline targets receive nothing, and one
// failing recipient never blocks delivery to the others.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
	metrics  contract.DeliveryMetrics
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, metrics contract.DeliveryMetrics) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, metrics: metrics}
}

func (b *Broadcaster) Broadcast(targets []string, event string, payload any) {
	b.BroadcastExcept(targets, "", event, payload)
}

// BroadcastExcept skips the excluded identity's own connection, used for
// typing indicators which must never echo to the sender.
func (b *Broadcaster) BroadcastExcept(targets []string, exclude string, event string, payload any) {
	if b.metrics != nil {
		b.metrics.IncrBroadcast()
	}
	for _, userID := range targets {
		if exclude != "" && userID == exclude {
			continue
		}
		sink, ok := b.registry.Lookup(userID)
		if !ok {
			continue
		}
		if err := sink.Emit(event, payload); err != nil {
			b.log.Warn("Delivery failed, recipient skipped",
				"user_id", userID,
				"event", event,
				"error", err)
			if b.metrics != nil {
				b.metrics.IncrDeliveryFailure()
			}
		}
	}
}
