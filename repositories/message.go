//go:generate go run go.uber.org/mock/mockgen -source=../contract/contract.go -destination=../mocks/mock_contract.go -package=mocks
package repositories

import (
	apperrors "chat-hive/errors"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"chat-hive/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

func messageKey(id uuid.UUID) []byte {
	return []byte("msg:" + id.String())
}

// chatIndexKey formats "chatmsg:{chat_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func chatIndexKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("chatmsg:%s:%019d:%s",
		message.ChatID,
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

// CreateMessage persists a message document and its chat-ordering index entry.
func (m MessageRepository) CreateMessage(message domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(message.ID), data); err != nil {
			return err
		}
		return txn.Set(chatIndexKey(message), []byte(message.ID.String()))
	})
}

func (m MessageRepository) FindMessageByID(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, fmt.Errorf("%w: %s", apperrors.ErrMessageNotFound, id)
	}
	return message, err
}

// SaveMessage overwrites an existing document in place. The chat index key
// depends only on immutable fields, so it does not need to be rewritten.
func (m MessageRepository) SaveMessage(message domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.ID), data)
	})
}

func (m MessageRepository) DeleteMessage(id uuid.UUID) error {
	message, err := m.FindMessageByID(id)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(messageKey(id)); err != nil {
			return err
		}
		return txn.Delete(chatIndexKey(message))
	})
}

// GetMessages retrieves messages for a chat using a reverse prefix scan over
// the ordering index. Thanks to the padded timestamp in the key, messages
// come back newest first. It stops once the configured limitMessages is
// reached; the returned cursor resumes the scan on the next page.
func (m MessageRepository) GetMessages(chatID string, cursor *string) ([]domain.Message, *string, error) {
	var ids []uuid.UUID
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("chatmsg:%s:", chatID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(ids) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				id, err := uuid.Parse(string(value))
				if err != nil {
					return err
				}
				ids = append(ids, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	for _, id := range ids {
		message, err := m.FindMessageByID(id)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, nil
}

func (m MessageRepository) CountMessages() (int, error) {
	return countPrefix(m.db, "msg:")
}

// countPrefix walks keys only, values are never prefetched.
func countPrefix(db *badger.DB, prefix string) (int, error) {
	count := 0
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
