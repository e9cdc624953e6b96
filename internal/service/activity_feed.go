package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edulane/edulane-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event kinds published to a group's activity channel.
const (
	EventGroupCreated      = "group_created"
	EventGroupUpdated      = "group_updated"
	EventGroupDeleted      = "group_deleted"
	EventMemberGranted     = "member_granted"
	EventMemberRevoked     = "member_revoked"
	EventOwnerChanged      = "owner_changed"
	EventPermissionGranted = "permission_granted"
	EventPermissionRevoked = "permission_revoked"
)

// GroupEvent is a compact record of a group mutation, streamed to group
// admins over the WebSocket feed.
type GroupEvent struct {
	GroupID   int       `json:"group_id"`
	Kind      string    `json:"kind"`
	ActorID   int       `json:"actor_id"`
	SubjectID int       `json:"subject_id,omitempty"`
	At        time.Time `json:"at"`
}

// ActivityFeed publishes group mutation events to Redis pub/sub. Delivery is
// best-effort: a publish failure is logged and never fails the mutation.
// A nil feed is valid and publishes nothing.
type ActivityFeed struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewActivityFeed creates an ActivityFeed over the given Redis client.
func NewActivityFeed(rdb *redis.Client, log zerolog.Logger) *ActivityFeed {
	return &ActivityFeed{
		rdb: rdb,
		log: log.With().Str("component", "activity_feed").Logger(),
	}
}

// Publish sends the event to the group's channel.
func (f *ActivityFeed) Publish(ctx context.Context, event GroupEvent) {
	if f == nil || f.rdb == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		f.log.Error().Err(err).Msg("Marshal group event")
		return
	}

	channel := config.RedisKey.GroupEventsChannel(event.GroupID)
	if err := f.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		f.log.Warn().Err(err).Int("group_id", event.GroupID).Msg("Publish group event")
	}
}
