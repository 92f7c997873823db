package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rpattn/iblockql/internal/entityloader"
)

type ctxKey string

const elementLoaderKey ctxKey = "elementLoader"

// DataLoaderMiddleware attaches a fresh element loader to every request context
func DataLoaderMiddleware(lister entityloader.ElementLister, wait time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := entityloader.NewElementLoader(lister, wait)
			ctx := context.WithValue(r.Context(), elementLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ElementLoaderFromContext retrieves the loader from context
func ElementLoaderFromContext(ctx context.Context) *entityloader.ElementLoader {
	if l, ok := ctx.Value(elementLoaderKey).(*entityloader.ElementLoader); ok {
		return l
	}
	return nil
}
