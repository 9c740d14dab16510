package aiusage

import (
	"context"
	"errors"
)

// Service orchestrates AI token-usage logic.
type Service struct {
	store *Store
}

// NewService creates a Service backed by the given Store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// UsePlan charges one plan (PlanCost tokens) to the user's monthly allowance.
func (s *Service) UsePlan(ctx context.Context, uid string) error {
	return s.UseTokens(ctx, uid, PlanCost)
}

// UseTokens deducts n tokens from the user's monthly allowance.
// If the user row does not exist yet it is initialised and the tokens are immediately consumed.
// Returns ErrInsufficientTokens when the quota for the current month is exhausted.
func (s *Service) UseTokens(ctx context.Context, uid string, n int) error {
	err := s.store.UseTokens(ctx, uid, n)
	if !errors.Is(err, ErrInsufficientTokens) {
		return err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.store.EnsureUser(ctx, uid); initErr != nil {
		return initErr
	}
	return s.store.UseTokens(ctx, uid, n)
}

// Remaining reports the user's tokens left this month.
func (s *Service) Remaining(ctx context.Context, uid string) (int, error) {
	return s.store.Remaining(ctx, uid)
}
