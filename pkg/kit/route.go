package kit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const unmatchedRoute = "unmatched"

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// RouteOrPath names the request by its chi route pattern, or by the raw path
// when no route matched. Used for logs.
func RouteOrPath(r *http.Request) string {
	if rp := routePattern(r); rp != "" {
		return rp
	}
	return r.URL.Path
}

// RouteLabel is RouteOrPath for metric labels: unmatched paths share one
// label so probing clients cannot grow the series count.
func RouteLabel(r *http.Request) string {
	if rp := routePattern(r); rp != "" {
		return rp
	}
	return unmatchedRoute
}
