// Package realtime pushes committed events to websocket clients grouped into rooms.
package realtime

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spec-kit/campus-service/internal/events"
)

// Control frame types. Event frames use the event type as their type.
const (
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
	TypePing         = "ping"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypePong         = "pong"
	TypeError        = "error"
)

const maxRoomLength = 128

// InboundFrame is what clients send.
type InboundFrame struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

// OutboundFrame is what the server sends, both for events and control replies.
type OutboundFrame struct {
	Type      string `json:"type"`
	Room      string `json:"room,omitempty"`
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload,omitempty"`
	Error     string `json:"error,omitempty"`
}

func eventFrame(event events.Event) OutboundFrame {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return OutboundFrame{
		Type:      string(event.Type),
		Room:      event.Room,
		ID:        event.ID,
		Timestamp: ts.UnixMilli(),
		Payload:   event.Payload,
	}
}

func controlFrame(frameType, room, errMsg string) []byte {
	data, _ := json.Marshal(OutboundFrame{
		Type:      frameType,
		Room:      room,
		Timestamp: time.Now().UnixMilli(),
		Error:     errMsg,
	})
	return data
}

// ValidRoom accepts the room keys the server publishes to.
func ValidRoom(room string) bool {
	if room == "" || len(room) > maxRoomLength {
		return false
	}
	if room == events.NewsRoom {
		return true
	}
	for _, prefix := range []string{events.DiscussionRoom(""), events.CommunityRoom("")} {
		if strings.HasPrefix(room, prefix) && len(room) > len(prefix) {
			return true
		}
	}
	return false
}
