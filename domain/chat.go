package domain

import "time"

// Chat is owned by the persistence collaborator. The realtime core reads it
// only to compute fan-out audiences from the member list.
type Chat struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	GroupChat bool      `json:"groupChat"`
	Creator   string    `json:"creator"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}
