package nscontext

import "context"

type contextKey struct{}

// WithNamespace returns a context carrying the tenant namespace.
func WithNamespace(ctx context.Context, namespace string) context.Context {
	return context.WithValue(ctx, contextKey{}, namespace)
}

// NamespaceFromContext extracts the tenant namespace set by the server
// middleware. Services must treat a missing namespace as a hard error.
func NamespaceFromContext(ctx context.Context) (string, bool) {
	ns, ok := ctx.Value(contextKey{}).(string)
	if !ok || ns == "" {
		return "", false
	}
	return ns, true
}
