package domain

import "time"

// Discussion is a titled thread scoped to a community.
type Discussion struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"authorId"`
	CommunityID string    `json:"communityId"`
	CreatedAt   time.Time `json:"createdAt"`
	Messages    []Message `json:"messages,omitempty"`
}
