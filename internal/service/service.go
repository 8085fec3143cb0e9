// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"context"
	"log/slog"

	"github.com/rai-team-aiframe/dreamly/internal/middleware"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/notifications"
)

// EventNotifier delivers realtime events to users.
type EventNotifier interface {
	Notify(ctx context.Context, userID uint, ev notifications.Event) error
	NotifyMany(ctx context.Context, userIDs []uint, ev notifications.Event) error
}

// ToggleResult reports the outcome of a like or follow toggle with the refreshed count.
type ToggleResult struct {
	Action models.ToggleAction
	Count  int64
}

// notify is best effort: a failed publish never fails the request.
func notify(ctx context.Context, n EventNotifier, userIDs []uint, ev notifications.Event) {
	if n == nil || len(userIDs) == 0 {
		return
	}
	if err := n.NotifyMany(ctx, userIDs, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "notification publish failed",
			slog.String("event", string(ev.Type)),
			slog.String("error", err.Error()),
		)
	}
}
