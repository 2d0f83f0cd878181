package dto

// CreateDiscussionRequest payload. The author is the authenticated caller.
type CreateDiscussionRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	CommunityID string `json:"communityId"`
}

// MessageRequest payload for posting or editing a message.
type MessageRequest struct {
	Content string `json:"content"`
}

// MessageListQuery is bound from GET /discussions/:id.
type MessageListQuery struct {
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
	Order  string `query:"order"`
}

// SearchQuery is bound from GET /discussions/search.
type SearchQuery struct {
	Query string `query:"query"`
	Limit int    `query:"limit"`
}
