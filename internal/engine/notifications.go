package engine

import (
	"context"

	"github.com/flowbridge/syncd/internal/logger"
	"github.com/flowbridge/syncd/pkg/driver"
)

// notificationsLoop drains the driver's notification channel, if it has
// one, dispatching each event under the same mutex the producer API uses
// so metadata mutations stay serialized (spec.md §5). Returns immediately
// if the driver doesn't implement driver.NotificationSource.
func (e *Engine) notificationsLoop(ctx context.Context) {
	src, ok := e.Driver.(driver.NotificationSource)
	if !ok {
		return
	}

	ch := src.Notifications()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			e.dispatchNotification(n)
		}
	}
}

// dispatchNotification handles one asynchronous driver event. Unknown
// notification names are logged and otherwise ignored: this engine has no
// FDB/port-state consumer yet, but the dispatch point exists so one can be
// added without touching the loop itself.
func (e *Engine) dispatchNotification(n driver.Notification) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger.Info("driver notification", "name", n.Name, "payload", n.Payload)
}
