package domain

import "time"

// Community groups users and their discussions.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	Members     []User    `json:"members,omitempty"`
}
