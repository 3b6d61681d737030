// Package domain contains core concepts of the chat system.
// This file defines the User identity as seen by the realtime core.
// Account management (passwords, avatars, bio) lives elsewhere.
package domain

import "time"

// User is the stable identity behind a connection. The realtime core only
// needs the id and the display name carried by message projections.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
