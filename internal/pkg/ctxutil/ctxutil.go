package ctxutil

import "context"

// Default returns context.Background() when ctx is nil. The record store
// client calls it ahead of every request so a caller passing a nil context
// cannot panic the HTTP layer.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
