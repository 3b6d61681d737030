package repositories

import (
	"context"
	"log/slog"
	"strings"

	"chat-hive/domain"

	"github.com/blugelabs/bluge"
)

// UserHit is a search result row, shaped for the search endpoint response.
type UserHit struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// UserIndex maintains a full-text index over user display names, backing
// name search with prefix matching instead of collection scans.
type UserIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewUserIndex(writer *bluge.Writer, log *slog.Logger) *UserIndex {
	return &UserIndex{writer: writer, log: log}
}

// Index inserts or replaces the user's search document.
func (i *UserIndex) Index(user domain.User) error {
	doc := bluge.NewDocument(user.ID).
		AddField(bluge.NewTextField("name", user.Name).StoreValue()).
		AddField(bluge.NewTextField("username", user.Username).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

func (i *UserIndex) Delete(userID string) error {
	doc := bluge.NewDocument(userID)
	return i.writer.Delete(doc.ID())
}

// Search matches the term as a prefix against names and usernames.
func (i *UserIndex) Search(ctx context.Context, term string, limit int) ([]UserHit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()

	term = strings.ToLower(strings.TrimSpace(term))
	query := bluge.NewBooleanQuery().
		AddShould(bluge.NewPrefixQuery(term).SetField("name")).
		AddShould(bluge.NewPrefixQuery(term).SetField("username"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []UserHit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit UserHit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "name":
				hit.Name = string(value)
			case "username":
				hit.Username = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
