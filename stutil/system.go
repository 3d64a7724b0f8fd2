package stutil

import (
	"context"
	"os/signal"
	"syscall"
)

// SignalContext is cancelled by SIGINT or SIGTERM. SIGPIPE is ignored.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	signal.Ignore(syscall.SIGPIPE)
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
