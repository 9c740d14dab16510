package aiusage

import "errors"

// ErrInsufficientTokens is returned when a user has no tokens remaining for the current month.
var ErrInsufficientTokens = errors.New("insufficient tokens")

const (
	// DefaultTokens is the number of tokens granted per month.
	DefaultTokens = 100
	// PlanCost is what one plan consumes: one extraction call and one
	// recommendation call.
	PlanCost = 2
)
