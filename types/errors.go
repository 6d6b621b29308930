package types

import "errors"

// Failure categories. Every error the ledger returns wraps exactly one of
// these, so callers can branch with errors.Is while the descriptive
// reason string stays intact.
var (
	// ErrUnauthorized: the caller lacks authority over the required principal.
	ErrUnauthorized = errors.New("missing required authority")

	// ErrValidation: malformed or out-of-range operation input.
	ErrValidation = errors.New("invalid input")

	// ErrSupply: the operation would push supply outside [0, max_supply].
	ErrSupply = errors.New("supply constraint violated")

	// ErrBalance: overdraft, missing balance row, or a corrupt deposit ledger.
	ErrBalance = errors.New("balance constraint violated")

	// ErrStakingConfig: rejected setstakespec parameters.
	ErrStakingConfig = errors.New("invalid staking configuration")

	// ErrClaim: a claim that cannot produce a reward.
	ErrClaim = errors.New("nothing claimable")

	// ErrNotFound is returned by store lookups for absent rows.
	ErrNotFound = errors.New("not found")
)
