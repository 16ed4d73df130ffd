package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"

	"github.com/m-mizutani/buildgate/pkg/utils/errs"
)

// Dispatch runs handler in a new goroutine, detached from the cancellation of ctx.
// The ctxlog logger of ctx is carried over. Panics are recovered and logged, errors
// returned by handler go to errs.Handle.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger := ctxlog.From(newCtx)
				logger.Error("panic in async handler",
					"recover", r,
					"stack", string(stack))
			}
		}()

		if err := handler(newCtx); err != nil {
			errs.Handle(newCtx, "error in async handler", err)
		}
	}()
}

// newBackgroundContext returns context.Background() carrying the logger of ctx
func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = ctxlog.With(newCtx, ctxlog.From(ctx))
	return newCtx
}
