package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type contextKey string

const containerScopeKey contextKey = "containerScope"

// ScopeHeader lists the container codes a caller may read, comma separated.
const ScopeHeader = "X-Container-Scope"

// ContextWithContainerScope returns a new context restricted to the given container codes.
func ContextWithContainerScope(ctx context.Context, codes []string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	scope := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		trimmed := strings.ToLower(strings.TrimSpace(code))
		if trimmed != "" {
			scope[trimmed] = struct{}{}
		}
	}
	if len(scope) == 0 {
		return ctx
	}
	return context.WithValue(ctx, containerScopeKey, scope)
}

// ContainerScopeFromContext retrieves the allowed container codes, if any.
func ContainerScopeFromContext(ctx context.Context) (map[string]struct{}, bool) {
	if ctx == nil {
		return nil, false
	}
	scope, ok := ctx.Value(containerScopeKey).(map[string]struct{})
	if !ok || len(scope) == 0 {
		return nil, false
	}
	return scope, true
}

// EnforceContainerScope ensures the container is readable under the scope carried by ctx.
// Contexts without a scope may read every container.
func EnforceContainerScope(ctx context.Context, containerCode string) error {
	scope, ok := ContainerScopeFromContext(ctx)
	if !ok {
		return nil
	}
	if _, allowed := scope[strings.ToLower(strings.TrimSpace(containerCode))]; !allowed {
		return fmt.Errorf("container %q is outside the authenticated scope", containerCode)
	}
	return nil
}

// ScopeMiddleware reads the scope header into the request context.
func ScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(ScopeHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := ContextWithContainerScope(r.Context(), strings.Split(raw, ","))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
