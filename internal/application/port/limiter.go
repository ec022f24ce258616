package port

import "context"

// Operation is a single venue call guarded by the rate limiter.
type Operation func(ctx context.Context) (any, error)

// BatchRequest pairs an operation with the venue whose retry budget it spends.
type BatchRequest struct {
	Venue string
	Op    Operation
}

// BatchResult is one settled entry of a batch: either Value or Err is set.
type BatchResult struct {
	Venue   string
	Success bool
	Value   any
	Err     error
}

// Limiter wraps venue operations with adaptive backoff. ExecuteBatch never
// fails as a whole; every request settles into its own result.
type Limiter interface {
	Execute(ctx context.Context, venue string, op Operation) (any, error)
	ExecuteBatch(ctx context.Context, reqs []BatchRequest) []BatchResult
}
