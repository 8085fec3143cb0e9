package notifications

import "time"

// EventType names a notification kind.
type EventType string

const (
	EventFollowed EventType = "followed"
	EventLiked    EventType = "liked"
	EventNewPost  EventType = "new_post"
)

// Event is the JSON frame written to notification sockets.
type Event struct {
	Type    EventType    `json:"type"`
	Payload EventPayload `json:"payload"`
}

// EventPayload identifies who acted and, for post events, on which post.
type EventPayload struct {
	ActorID       uint      `json:"actor_id"`
	ActorUsername string    `json:"actor_username"`
	PostID        uint      `json:"post_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, actorID uint, actorUsername string, postID uint) Event {
	return Event{
		Type: t,
		Payload: EventPayload{
			ActorID:       actorID,
			ActorUsername: actorUsername,
			PostID:        postID,
			CreatedAt:     time.Now().UTC(),
		},
	}
}
