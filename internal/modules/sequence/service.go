package sequence

import (
	"context"
	"fmt"
	"time"
)

// Service issues gapless, never-reused identifiers for legally numbered
// documents (invoices, credit notes).
type Service interface {
	// Allocate returns the next identifier for the domain, formatted as
	// "<PREFIX>-<year>-<count padded to 6 digits>". Values are never
	// decremented, reused or reset; a number issued to a later-cancelled
	// order is retired, not recycled.
	Allocate(ctx context.Context, domain Domain) (string, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new sequence allocator.
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Allocate(ctx context.Context, domain Domain) (string, error) {
	prefix, ok := prefixes[domain]
	if !ok {
		return "", ErrUnknownDomain
	}

	year := s.now().Year()
	count, err := s.repo.Next(ctx, domain, year)
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", domain, err)
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, year, count), nil
}
