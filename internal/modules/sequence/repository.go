package sequence

import "context"

// Repository persists the per-domain counters.
type Repository interface {
	// Next atomically increments the domain's counter and returns the new
	// value. The counter row is created on first use. The increment is a
	// single atomic unit: no two calls ever observe the same value and no
	// value is ever skipped.
	Next(ctx context.Context, domain Domain, year int) (int64, error)
}
