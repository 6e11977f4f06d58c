package ot

import (
	"fmt"

	"go.uber.org/zap"
)

// Transform reconciles two documents that diverged from a common ancestor.
//
// Given: left and right hold deltas A and B over the same base length.
// Result: left becomes A∘B' and right becomes B∘A', where (A', B') is the
// transform of (A, B). Both documents end with identical content. Left has
// priority for inserts at the same position and for conflicting formatting.
//
// Mismatched base lengths are a caller error; both documents are left
// untouched and the error wraps delta.ErrIncompatibleLengths.
func Transform(left, right *Document) error {
	a, b := left.delta, right.delta

	aPrime, bPrime, err := a.Transform(b)
	if err != nil {
		return fmt.Errorf("transform documents: %w", err)
	}

	left.logger.Debug("transformed",
		zap.Stringer("a_prime", aPrime),
		zap.Stringer("b_prime", bPrime),
	)

	leftState, err := a.Compose(bPrime)
	assert(err == nil, "left side does not accept transformed change: ", err)

	rightState, err := b.Compose(aPrime)
	assert(err == nil, "right side does not accept transformed change: ", err)

	left.replace(leftState)
	right.replace(rightState)

	return nil
}
