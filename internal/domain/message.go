package domain

import "time"

// Message is a single authored post within a Discussion.
// AuthorRole is the author's role at send time.
type Message struct {
	ID           string    `json:"id"`
	DiscussionID string    `json:"discussionId"`
	AuthorID     string    `json:"authorId"`
	AuthorRole   Role      `json:"authorRole"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
