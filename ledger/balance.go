package ledger

import (
	"errors"
	"fmt"

	"github.com/thrylos-labs/postoken/amount"
	"github.com/thrylos-labs/postoken/types"
)

// Open creates a zero balance row for owner so later transfers to the
// account need no setup. Re-opening an existing row is a no-op.
func (l *Ledger) Open(owner types.Principal, sym amount.Symbol, ramPayer types.Principal) error {
	if err := l.auth.RequireAuth(ramPayer); err != nil {
		return err
	}
	if !sym.IsValid() {
		return fmt.Errorf("%w: invalid symbol name", types.ErrValidation)
	}

	return l.withTxn(func(ctx types.TransactionContext) error {
		st, err := l.store.GetStats(ctx, sym.Code)
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: symbol does not exist", types.ErrValidation)
		}
		if err != nil {
			return err
		}
		if !sym.Equal(st.Supply.Symbol) {
			return fmt.Errorf("%w: symbol precision mismatch", types.ErrValidation)
		}

		_, err = l.store.GetBalanceEntry(ctx, owner, sym.Code)
		if err == nil {
			return nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return err
		}
		return l.store.SaveBalanceEntry(ctx, owner, &types.BalanceEntry{
			Owner:   owner,
			Balance: amount.Zero(sym),
		})
	})
}

// Close removes owner's zero balance row. A row with funds cannot be
// closed and a missing row is an error, so the caller learns the action
// had no effect.
func (l *Ledger) Close(owner types.Principal, sym amount.Symbol) error {
	if err := l.auth.RequireAuth(owner); err != nil {
		return err
	}

	return l.withTxn(func(ctx types.TransactionContext) error {
		entry, err := l.store.GetBalanceEntry(ctx, owner, sym.Code)
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: Balance row already deleted or never existed. Action won't have any effect.", types.ErrBalance)
		}
		if err != nil {
			return err
		}
		if entry.Balance.Amount != 0 {
			return fmt.Errorf("%w: Cannot close because the balance is not zero.", types.ErrBalance)
		}
		return l.store.DeleteBalanceEntry(ctx, owner, sym.Code)
	})
}

// Transfer moves quantity from one account to another. The recipient
// pays for its own balance row when it authorized the action, otherwise
// the sender does.
func (l *Ledger) Transfer(from, to types.Principal, quantity amount.Asset, memo string) error {
	if err := l.auth.RequireAuth(from); err != nil {
		return err
	}
	if !quantity.Symbol.IsValid() {
		return fmt.Errorf("%w: invalid symbol name", types.ErrValidation)
	}
	if err := checkMemo(memo); err != nil {
		return err
	}

	return l.withTxn(func(ctx types.TransactionContext) error {
		st, err := l.store.GetStats(ctx, quantity.Symbol.Code)
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: symbol does not exist", types.ErrValidation)
		}
		if err != nil {
			return err
		}
		return l.transfer(ctx, st, from, to, quantity, memo)
	})
}

// transfer applies the shared transfer checks and moves funds inside an
// already open transaction. Issue re-dispatches through here so issuing
// to a third party behaves exactly like a transfer from the issuer.
func (l *Ledger) transfer(ctx types.TransactionContext, st *types.TokenStats, from, to types.Principal, quantity amount.Asset, memo string) error {
	if from == to {
		return fmt.Errorf("%w: cannot transfer to self", types.ErrValidation)
	}
	if !l.auth.IsAccount(to) {
		return fmt.Errorf("%w: to account does not exist", types.ErrValidation)
	}
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: must transfer positive quantity", types.ErrValidation)
	}
	if !quantity.Symbol.Equal(st.Supply.Symbol) {
		return fmt.Errorf("%w: symbol precision mismatch", types.ErrValidation)
	}

	payer := from
	if l.auth.HasAuth(to) {
		payer = to
	}

	if err := l.debitBalance(ctx, from, quantity); err != nil {
		return err
	}
	return l.creditBalance(ctx, to, quantity, payer)
}

// creditBalance adds value to owner's balance and appends one deposit
// record stamped now. Records are never merged on credit; each credit
// starts its own coin-age clock.
func (l *Ledger) creditBalance(ctx types.TransactionContext, owner types.Principal, value amount.Asset, payer types.Principal) error {
	entry, err := l.store.GetBalanceEntry(ctx, owner, value.Symbol.Code)
	if errors.Is(err, types.ErrNotFound) {
		entry = &types.BalanceEntry{Owner: owner, Balance: amount.Zero(value.Symbol)}
	} else if err != nil {
		return err
	}

	entry.Balance, err = entry.Balance.Add(value)
	if err != nil {
		return err
	}
	if err := l.store.SaveBalanceEntry(ctx, owner, entry); err != nil {
		return err
	}
	_, err = l.store.AppendDeposit(ctx, owner, value, l.clock.Now())
	return err
}

// debitBalance removes value from owner's balance and consolidates the
// owner's deposit records for that symbol into a single record holding
// the remainder, stamped now. Any debit therefore resets the coin age of
// the whole remaining balance.
func (l *Ledger) debitBalance(ctx types.TransactionContext, owner types.Principal, value amount.Asset) error {
	entry, err := l.store.GetBalanceEntry(ctx, owner, value.Symbol.Code)
	if errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("%w: no balance object found", types.ErrBalance)
	}
	if err != nil {
		return err
	}
	if entry.Balance.Amount < value.Amount {
		return fmt.Errorf("%w: overdrawn balance", types.ErrBalance)
	}

	records, err := l.store.DepositsBySymbol(ctx, owner, value.Symbol.Code)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: no deposit records found, even though balance exists", types.ErrBalance)
	}
	for _, rec := range records {
		if !rec.Quantity.Symbol.Equal(value.Symbol) {
			return fmt.Errorf("%w: invalid precision in deposit record", types.ErrBalance)
		}
	}

	entry.Balance, err = entry.Balance.Sub(value)
	if err != nil {
		return err
	}
	if err := l.store.SaveBalanceEntry(ctx, owner, entry); err != nil {
		return err
	}

	if _, err := l.store.DeleteDepositsBySymbol(ctx, owner, value.Symbol.Code); err != nil {
		return err
	}
	if entry.Balance.Amount > 0 {
		if _, err := l.store.AppendDeposit(ctx, owner, entry.Balance, l.clock.Now()); err != nil {
			return err
		}
	}
	return nil
}
