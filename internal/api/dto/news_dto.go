package dto

// CreateNewsRequest payload.
type CreateNewsRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// PushSubscriptionRequest mirrors the browser PushSubscription JSON.
type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256DH string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}
