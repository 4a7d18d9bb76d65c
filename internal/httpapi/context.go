package httpapi

import (
	"context"
	"net/http"
)

// shutdownCtx is canceled when the process begins shutting down. Handlers
// derive their work contexts from it so in-flight inference stops alongside
// the HTTP server. Defaults to Background until SetBaseContext is called.
var shutdownCtx = context.Background()

// SetBaseContext installs the process lifetime context. A nil ctx resets to
// Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx = ctx
}

// requestContext derives a context from the request that is additionally
// canceled on process shutdown. The returned cancel must be called when the
// handler finishes to release the shutdown watcher.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(shutdownCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
