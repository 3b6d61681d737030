package repositories

import (
	apperrors "chat-hive/errors"
	"encoding/json"
	"errors"
	"fmt"

	"chat-hive/domain"

	"github.com/dgraph-io/badger/v4"
)

type ChatRepository struct {
	db *badger.DB
}

func NewChatRepository(db *badger.DB) ChatRepository {
	return ChatRepository{db: db}
}

func chatKey(id string) []byte {
	return []byte("chat:" + id)
}

func (c ChatRepository) CreateChat(chat domain.Chat) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chatKey(chat.ID), data)
	})
}

func (c ChatRepository) FindChatByID(id string) (domain.Chat, error) {
	var chat domain.Chat
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &chat)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Chat{}, fmt.Errorf("%w: %s", apperrors.ErrChatNotFound, id)
	}
	return chat, err
}

// Members is the read path used to compute fan-out audiences.
func (c ChatRepository) Members(chatID string) ([]string, error) {
	chat, err := c.FindChatByID(chatID)
	if err != nil {
		return nil, err
	}
	return chat.Members, nil
}

func (c ChatRepository) CountChats() (int, error) {
	return countPrefix(c.db, "chat:")
}
