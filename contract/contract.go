//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-hive/domain"
	"context"
	"reflect"

	"github.com/google/uuid"
)

// EventSink is the non-owning handle to a live connection. The transport
// layer owns the underlying socket; Emit must never block on a slow peer.
type EventSink interface {
	Emit(event string, payload any) error
}

// IRegistry maps identities to live connection handles. At most one handle
// per identity: registering again replaces the previous entry.
type IRegistry interface {
	Register(userID string, sink EventSink)
	Unregister(userID string, sink EventSink)
	Lookup(userID string) (EventSink, bool)
	Resolve(userIDs []string) []EventSink
	Known() []string
}

// IPresence tracks which identities are joined to which chats. The online
// set is advisory, independent of registry membership.
type IPresence interface {
	Join(userID, chatID string)
	Leave(userID, chatID string)
	Drop(userID string) []string
	Snapshot() []string
}

// IBroadcaster fans a typed event out to the live connections of the target
// identities. Delivery is at-most-once, best-effort.
type IBroadcaster interface {
	Broadcast(targets []string, event string, payload any)
	BroadcastExcept(targets []string, exclude string, event string, payload any)
}

type IMessageRepository interface {
	CreateMessage(message domain.Message) error
	FindMessageByID(id uuid.UUID) (domain.Message, error)
	SaveMessage(message domain.Message) error
	DeleteMessage(id uuid.UUID) error
	GetMessages(chatID string, cursor *string) ([]domain.Message, *string, error)
	CountMessages() (int, error)
}

type IUserRepository interface {
	CreateUser(user domain.User) error
	FindUserByID(id string) (domain.User, error)
	CountUsers() (int, error)
}

type IChatRepository interface {
	CreateChat(chat domain.Chat) error
	FindChatByID(id string) (domain.Chat, error)
	Members(chatID string) ([]string, error)
	CountChats() (int, error)
}

// BlobStore is the attachment storage collaborator. The core only validates
// the bytes and forwards them; storage itself is out of scope.
type BlobStore interface {
	Store(ctx context.Context, filename, contentType string, data []byte) (domain.Attachment, error)
	Delete(ctx context.Context, publicIDs []string) error
}

// DeliveryMetrics receives fan-out counters from the broadcaster.
type DeliveryMetrics interface {
	IncrBroadcast()
	IncrDeliveryFailure()
}

// Worker doesn't protect itself; the supervisor restarts it after a panic.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
