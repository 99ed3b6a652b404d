// Package services contains the application services used by the
// foreground process: typed record operations over the local store, and
// the device session.
//
// Every mutation writes the record and its outbox entry in one transaction,
// then nudges the agent to replay. The nudge is best effort: if the agent is
// unreachable the entry simply waits for the next trigger.
package services

import (
	"context"
	"time"

	"github.com/vaxtrace/vaxsync/internal/client/control"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

// Notifier delivers control requests to the agent.
type Notifier interface {
	Call(ctx context.Context, t control.Type) (control.Response, error)
}

// NotifyTimeout bounds how long a mutation waits for the agent's answer.
const NotifyTimeout = 2 * time.Second

func notifySync(ctx context.Context, n Notifier, log logging.Logger) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, NotifyTimeout)
	defer cancel()

	resp, err := n.Call(ctx, control.TriggerSync)
	if err != nil {
		log.Debug(ctx, "agent not notified", "error", err)
		return
	}
	if !resp.Success {
		log.Debug(ctx, "agent sync did not succeed", "error", resp.Error)
	}
}
