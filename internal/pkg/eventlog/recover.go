package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/coursepulse/internal/pkg/stacktrace"
)

// safeHandle converts a handler panic into an error so the record is
// redelivered instead of crashing the consumer loop.
func safeHandle(ctx context.Context, driver string, h Handler, d Delivery) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "panic in event handler",
				"driver", driver,
				"topic", d.Topic,
				"panic", rvr,
				"stack", stacktrace.InternalPaths(debug.Stack()),
			)
			err = fmt.Errorf("eventlog: panic in %s handler: %v", driver, rvr)
		}
	}()

	return h(ctx, d)
}
