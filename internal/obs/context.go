package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// unmatchedRoute keeps metric cardinality bounded for paths no route claimed.
const unmatchedRoute = "unmatched"

type routePatternKey struct{}

// WithRoutePattern pins the route label for handlers mounted outside chi.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePattern returns the label for r. A pinned pattern wins over chi's match.
// chi fills its route context while routing, so callers read this after next has run.
func RoutePattern(r *http.Request) string {
	ctx := r.Context()
	if v, ok := ctx.Value(routePatternKey{}).(string); ok && v != "" {
		return v
	}
	if rc := chi.RouteContext(ctx); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
