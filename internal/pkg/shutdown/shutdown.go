package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

// NotifyContext returns a context cancelled on SIGINT or SIGTERM. The
// server treats cancellation as the signal to stop accepting webhooks and
// drain the reconciliation queue.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
