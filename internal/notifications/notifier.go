// Package notifications provides real-time notification delivery and management.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/rai-team-aiframe/dreamly/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix  = "notifications:user:"
	userChannelPattern = userChannelPrefix + "*"
)

// Deliverer hands a payload to the local connections of a user.
type Deliverer interface {
	Broadcast(userID uint, message string)
}

// Notifier publishes events for users. With Redis every instance's hub receives
// the event through pub/sub; without it the event goes straight to the local hub.
type Notifier struct {
	rdb   *redis.Client
	local Deliverer
}

// NewNotifier creates a Notifier. Either argument may be nil.
func NewNotifier(rdb *redis.Client, local Deliverer) *Notifier {
	return &Notifier{rdb: rdb, local: local}
}

// Notify sends ev to every connection of userID.
func (n *Notifier) Notify(ctx context.Context, userID uint, ev Event) error {
	if n == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if n.rdb != nil {
		return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
	}
	if n.local != nil {
		n.local.Broadcast(userID, string(payload))
	}
	return nil
}

// NotifyMany sends ev to each user, returning the first error after trying all.
func (n *Notifier) NotifyMany(ctx context.Context, userIDs []uint, ev Event) error {
	var firstErr error
	for _, id := range userIDs {
		if err := n.Notify(ctx, id, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StartPatternSubscriber subscribes to `notifications:user:*` and calls onMessage
// for each incoming message until ctx is cancelled. It is a no-op without Redis.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPattern)
	// Wait for the subscription to be confirmed so early publishes are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", userChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel is the inverse of UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
