package dto

// CreateCommunityRequest payload.
type CreateCommunityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
