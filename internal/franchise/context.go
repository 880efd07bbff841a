package franchise

import "context"

type contextKey string

const franchiseContextKey contextKey = "franchise"

// Franchise is the resolved owning business unit for a request. Every
// invoice operation is scoped to exactly one.
type Franchise struct {
	ID   int64
	Code string
}

// NewContext returns a new context with the franchise attached.
func NewContext(ctx context.Context, f *Franchise) context.Context {
	return context.WithValue(ctx, franchiseContextKey, f)
}

// FromContext extracts the franchise from the context.
// Returns nil if no franchise is present.
func FromContext(ctx context.Context) *Franchise {
	f, ok := ctx.Value(franchiseContextKey).(*Franchise)
	if !ok {
		return nil
	}
	return f
}

// IDFromContext returns the franchise id from context and whether one
// was present.
func IDFromContext(ctx context.Context) (int64, bool) {
	f := FromContext(ctx)
	if f == nil {
		return 0, false
	}
	return f.ID, true
}
