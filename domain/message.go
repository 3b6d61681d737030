// Package domain contains core concepts of the chat system.
// This file defines Message documents and the poll state machine rules.
package domain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Attachment references a blob stored by the blob-store collaborator.
type Attachment struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Location is a shared position snapshot.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// VoterSet holds the identities that voted for one poll option. Membership
// and removal must be O(1); on the wire it is an ordered-irrelevant list.
type VoterSet map[string]struct{}

func (s VoterSet) Has(userID string) bool {
	_, ok := s[userID]
	return ok
}

func (s *VoterSet) Add(userID string) {
	if *s == nil {
		*s = make(VoterSet)
	}
	(*s)[userID] = struct{}{}
}

func (s VoterSet) Remove(userID string) {
	delete(s, userID)
}

func (s VoterSet) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return json.Marshal(ids)
}

func (s *VoterSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = make(VoterSet, len(ids))
	for _, id := range ids {
		(*s)[id] = struct{}{}
	}
	return nil
}

type PollOption struct {
	Text  string   `json:"text"`
	Votes VoterSet `json:"votes"`
}

// Poll lives inside a message and is mutated only by the vote coordinator.
// A nil EndTime means the poll never closes on its own.
type Poll struct {
	Question        string       `json:"question"`
	Options         []PollOption `json:"options"`
	MultipleAnswers bool         `json:"multipleAnswers"`
	EndTime         *time.Time   `json:"endTime,omitempty"`
}

// Closed reports whether the end time has elapsed. There is no background
// timer; the transition is evaluated lazily at vote time.
func (p Poll) Closed(now time.Time) bool {
	return p.EndTime != nil && p.EndTime.Before(now)
}

// Message is the canonical persisted document.
type Message struct {
	ID          uuid.UUID    `json:"_id"`
	ChatID      string       `json:"chat"`
	SenderID    string       `json:"sender"`
	Content     string       `json:"content,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Location    *Location    `json:"location,omitempty"`
	Poll        *Poll        `json:"poll,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// MessageSender is the denormalized sender block of a realtime projection.
type MessageSender struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// RealtimeMessage is the ephemeral projection broadcast before the durable
// write completes. Its id is transient and distinct from the persisted id,
// which cannot be known yet.
type RealtimeMessage struct {
	ID          string        `json:"_id"`
	Content     string        `json:"content,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
	Location    *Location     `json:"location,omitempty"`
	Poll        *Poll         `json:"poll,omitempty"`
	Sender      MessageSender `json:"sender"`
	ChatID      string        `json:"chat"`
	CreatedAt   time.Time     `json:"createdAt"`
}
