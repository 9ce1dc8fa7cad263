package audit

import (
	"context"
	"net"
)

// RequestContext carries HTTP request attributes down to audit entries
// written by application services during that request. The API layer stores
// one per request; the audit service fills entry fields the caller left
// empty.
type RequestContext struct {
	ActorIP    net.IP
	ActorRoles []string
	UserAgent  string
	Method     string
	Path       string
	TraceID    string
}

type requestContextKey struct{}

// WithRequestContext returns a context carrying rc.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom extracts the request context, if any.
func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}
