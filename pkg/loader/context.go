package loader

import "context"

type nonBlockingKey struct{}

// WithNonBlocking marks ctx as belonging to code that must never block on
// I/O, such as the result consumer of the dispatcher. Load refuses to run
// under such a context.
func WithNonBlocking(ctx context.Context) context.Context {
	return context.WithValue(ctx, nonBlockingKey{}, true)
}

func IsNonBlocking(ctx context.Context) bool {
	nonBlocking, _ := ctx.Value(nonBlockingKey{}).(bool)
	return nonBlocking
}
