package ledger

import (
	"errors"
	"fmt"
	"log"

	"github.com/thrylos-labs/postoken/amount"
	"github.com/thrylos-labs/postoken/config"
	"github.com/thrylos-labs/postoken/types"
)

// Ledger is the proof-of-coin-age token engine. Every public operation
// runs inside one store transaction: it either commits completely or
// leaves no trace. Authorization and time come from the host through the
// Authorizer and Clock collaborators.
type Ledger struct {
	store types.Store
	auth  Authorizer
	clock Clock
	self  types.Principal
}

// New wires the engine to its store and host collaborators. self is the
// contract principal whose authority gates Create.
func New(store types.Store, auth Authorizer, clock Clock, self types.Principal) *Ledger {
	return &Ledger{store: store, auth: auth, clock: clock, self: self}
}

// withTxn runs fn inside a fresh store transaction, committing on
// success and rolling back every mutation on any error.
func (l *Ledger) withTxn(fn func(ctx types.TransactionContext) error) error {
	ctx, err := l.store.BeginTransaction()
	if err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if rbErr := l.store.RollbackTransaction(ctx); rbErr != nil {
			log.Printf("[ledger] rollback failed: %v", rbErr)
		}
		return err
	}
	return l.store.CommitTransaction(ctx)
}

func checkMemo(memo string) error {
	if len(memo) > config.MaxMemoBytes {
		return fmt.Errorf("%w: memo has more than 256 bytes", types.ErrValidation)
	}
	return nil
}

// Create registers a new token symbol with a fixed supply cap. Only the
// contract principal may create symbols.
func (l *Ledger) Create(issuer types.Principal, maxSupply amount.Asset) error {
	if err := l.auth.RequireAuth(l.self); err != nil {
		return err
	}
	if !maxSupply.IsValid() {
		return fmt.Errorf("%w: invalid symbol name", types.ErrValidation)
	}
	if !maxSupply.IsPositive() {
		return fmt.Errorf("%w: max-supply must be positive", types.ErrValidation)
	}

	return l.withTxn(func(ctx types.TransactionContext) error {
		sym := maxSupply.Symbol
		_, err := l.store.GetStats(ctx, sym.Code)
		if err == nil {
			return fmt.Errorf("%w: token with symbol already exists", types.ErrValidation)
		}
		if !errors.Is(err, types.ErrNotFound) {
			return err
		}

		st := &types.TokenStats{
			Supply:    amount.Zero(sym),
			MaxSupply: maxSupply,
			Issuer:    issuer,
		}
		return l.store.SaveStats(ctx, sym.Code, st)
	})
}

// Issue mints quantity into circulation, credited to the issuer. When to
// is a different account the freshly issued quantity is re-dispatched as
// an in-process transfer from the issuer, so the recipient observes a
// transfer with identical invariants and atomicity.
func (l *Ledger) Issue(to types.Principal, quantity amount.Asset, memo string) error {
	if !quantity.Symbol.IsValid() {
		return fmt.Errorf("%w: invalid symbol name", types.ErrValidation)
	}
	if err := checkMemo(memo); err != nil {
		return err
	}

	return l.withTxn(func(ctx types.TransactionContext) error {
		st, err := l.store.GetStats(ctx, quantity.Symbol.Code)
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: token with symbol does not exist, create token before issue", types.ErrValidation)
		}
		if err != nil {
			return err
		}

		if err := l.auth.RequireAuth(st.Issuer); err != nil {
			return err
		}
		if !quantity.IsPositive() {
			return fmt.Errorf("%w: must issue positive quantity", types.ErrValidation)
		}
		if !quantity.Symbol.Equal(st.Supply.Symbol) {
			return fmt.Errorf("%w: symbol precision mismatch", types.ErrValidation)
		}
		if quantity.Amount > st.MaxSupply.Amount-st.Supply.Amount {
			return fmt.Errorf("%w: quantity exceeds available supply", types.ErrSupply)
		}

		st.Supply, err = st.Supply.Add(quantity)
		if err != nil {
			return err
		}
		if err := l.store.SaveStats(ctx, quantity.Symbol.Code, st); err != nil {
			return err
		}
		if err := l.creditBalance(ctx, st.Issuer, quantity, st.Issuer); err != nil {
			return err
		}

		if to != st.Issuer {
			return l.transfer(ctx, st, st.Issuer, to, quantity, memo)
		}
		return nil
	})
}

// Retire burns quantity from circulation, debited from the issuer's own
// balance.
func (l *Ledger) Retire(quantity amount.Asset, memo string) error {
	if !quantity.Symbol.IsValid() {
		return fmt.Errorf("%w: invalid symbol name", types.ErrValidation)
	}
	if err := checkMemo(memo); err != nil {
		return err
	}

	return l.withTxn(func(ctx types.TransactionContext) error {
		st, err := l.store.GetStats(ctx, quantity.Symbol.Code)
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: token with symbol does not exist", types.ErrValidation)
		}
		if err != nil {
			return err
		}

		if err := l.auth.RequireAuth(st.Issuer); err != nil {
			return err
		}
		if !quantity.IsPositive() {
			return fmt.Errorf("%w: must retire positive quantity", types.ErrValidation)
		}
		if !quantity.Symbol.Equal(st.Supply.Symbol) {
			return fmt.Errorf("%w: symbol precision mismatch", types.ErrValidation)
		}
		if quantity.Amount > st.Supply.Amount {
			return fmt.Errorf("%w: retire quantity exceeds circulating supply", types.ErrSupply)
		}

		st.Supply, err = st.Supply.Sub(quantity)
		if err != nil {
			return err
		}
		if err := l.store.SaveStats(ctx, quantity.Symbol.Code, st); err != nil {
			return err
		}
		return l.debitBalance(ctx, st.Issuer, quantity)
	})
}

// SetStakeSpec configures staking for a symbol: the start time, the
// coin-age window and the annual interest schedule. The whole spec is
// replaced at once; reconfiguration is possible only until the configured
// start time elapses.
func (l *Ledger) SetStakeSpec(symCode string, stakeStartTime int64, minCoinAge, maxCoinAge uint32, annualInterests []types.InterestTier) error {
	return l.withTxn(func(ctx types.TransactionContext) error {
		st, err := l.store.GetStats(ctx, symCode)
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: token with this symbol does not exist", types.ErrValidation)
		}
		if err != nil {
			return err
		}

		if err := l.auth.RequireAuth(st.Issuer); err != nil {
			return err
		}

		now := l.clock.Now()
		if st.StakingConfigured() && now >= st.StakeStartTime {
			return fmt.Errorf("%w: Staking has already started", types.ErrStakingConfig)
		}
		if stakeStartTime < now {
			return fmt.Errorf("%w: stake_start_time cannot be in the past", types.ErrStakingConfig)
		}
		if len(annualInterests) == 0 {
			return fmt.Errorf("%w: empty interest schedule", types.ErrStakingConfig)
		}
		for _, tier := range annualInterests {
			if !tier.InterestRate.Symbol.Equal(st.Supply.Symbol) {
				return fmt.Errorf("%w: interest rate symbol mismatch", types.ErrStakingConfig)
			}
		}
		if maxCoinAge == 0 {
			return fmt.Errorf("%w: max_coin_age must be positive", types.ErrStakingConfig)
		}
		if minCoinAge > maxCoinAge {
			return fmt.Errorf("%w: min_coin_age cannot exceed max_coin_age", types.ErrStakingConfig)
		}

		st.StakeStartTime = stakeStartTime
		st.MinCoinAge = minCoinAge
		st.MaxCoinAge = maxCoinAge
		st.AnnualInterests = annualInterests
		return l.store.SaveStats(ctx, symCode, st)
	})
}
