package events

import (
	"time"

	"github.com/spec-kit/campus-service/internal/domain"
)

// EventType names an event on the wire; clients see it as the frame type.
type EventType string

const (
	EventDiscussionCreated EventType = "discussion:new"
	EventDiscussionDeleted EventType = "discussion:deleted"
	EventMessageCreated    EventType = "message:new"
	EventMessageUpdated    EventType = "message:updated"
	EventMessageDeleted    EventType = "message:deleted"
	EventNewsCreated       EventType = "news:new"
)

// NewsRoom is the global room every client can join for announcements.
const NewsRoom = "news"

// DiscussionRoom is the fan-out scope for one discussion's messages.
func DiscussionRoom(discussionID string) string {
	return "discussion:" + discussionID
}

// CommunityRoom is the fan-out scope for discussions created in a community.
func CommunityRoom(communityID string) string {
	return "community:" + communityID
}

// Event represents a domain event emitted by services after a committed write.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Room      string    `json:"room"`
	ActorID   string    `json:"actorId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// MessageDeletedPayload identifies a removed message.
type MessageDeletedPayload struct {
	ID           string `json:"id"`
	DiscussionID string `json:"discussionId"`
}

// DiscussionDeletedPayload identifies a removed discussion.
type DiscussionDeletedPayload struct {
	ID              string `json:"id"`
	CommunityID     string `json:"communityId"`
	MessagesDeleted int64  `json:"messagesDeleted"`
}

// NewsCreatedPayload is the announcement summary sent to the news room.
type NewsCreatedPayload struct {
	News domain.News `json:"news"`
}
