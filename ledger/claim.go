package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/thrylos-labs/postoken/amount"
	"github.com/thrylos-labs/postoken/config"
	"github.com/thrylos-labs/postoken/types"
)

// Claim pays account the interest its deposit records have accrued and
// consolidates every record into one stamped now, restarting the coin
// age of the whole balance. The reward mints new supply, capped at the
// symbol's remaining headroom.
func (l *Ledger) Claim(account types.Principal, symCode string) error {
	if err := l.auth.RequireAuth(account); err != nil {
		return err
	}

	return l.withTxn(func(ctx types.TransactionContext) error {
		st, err := l.store.GetStats(ctx, symCode)
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: Token with this symbol does not exist", types.ErrValidation)
		}
		if err != nil {
			return err
		}

		now := l.clock.Now()
		if !st.StakingConfigured() || now < st.StakeStartTime {
			return fmt.Errorf("%w: Can't claim before stake start time", types.ErrClaim)
		}

		yearsElapsed := uint32((now - st.StakeStartTime) / (config.DaysPerYear * config.SecondsPerDay))
		rate, ok := interestRateFor(st.AnnualInterests, yearsElapsed)
		if !ok || rate.Amount == 0 {
			return fmt.Errorf("%w: Nothing to claim: 0 interest rates", types.ErrClaim)
		}

		records, err := l.store.DepositsBySymbol(ctx, account, symCode)
		if err != nil {
			return err
		}

		sym := st.Supply.Symbol
		weighted := new(big.Int)
		for _, rec := range records {
			if !rec.Quantity.Symbol.Equal(sym) {
				return fmt.Errorf("%w: invalid precision in deposit record", types.ErrBalance)
			}

			from := rec.Time
			if st.StakeStartTime > from {
				from = st.StakeStartTime
			}
			ageDays := (now - from) / config.SecondsPerDay
			if ageDays < int64(st.MinCoinAge) {
				continue
			}
			if ageDays > int64(st.MaxCoinAge) {
				ageDays = int64(st.MaxCoinAge)
			}

			term := new(big.Int).SetInt64(rec.Quantity.Amount)
			term.Mul(term, big.NewInt(ageDays))
			weighted.Add(weighted, term)
		}

		// reward = floor(weighted * rate / (365 * 10^precision))
		reward := weighted.Mul(weighted, big.NewInt(rate.Amount))
		divisor := new(big.Int).SetInt64(config.DaysPerYear)
		divisor.Mul(divisor, big.NewInt(sym.Factor()))
		reward.Quo(reward, divisor)

		if reward.Sign() <= 0 {
			return fmt.Errorf("%w: Nothing to claim", types.ErrClaim)
		}

		headroom := st.MaxSupply.Amount - st.Supply.Amount
		if headroom <= 0 {
			return fmt.Errorf("%w: Max supply reached", types.ErrSupply)
		}
		payout := reward.Int64()
		if !reward.IsInt64() || payout > headroom {
			payout = headroom
		}

		entry, err := l.store.GetBalanceEntry(ctx, account, symCode)
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: no balance object found", types.ErrBalance)
		}
		if err != nil {
			return err
		}

		entry.Balance, err = entry.Balance.Add(amount.New(payout, sym))
		if err != nil {
			return err
		}
		st.Supply, err = st.Supply.Add(amount.New(payout, sym))
		if err != nil {
			return err
		}

		if err := l.store.SaveStats(ctx, symCode, st); err != nil {
			return err
		}
		if err := l.store.SaveBalanceEntry(ctx, account, entry); err != nil {
			return err
		}

		// Consolidate: one record for the whole balance, aged from now.
		if _, err := l.store.DeleteDepositsBySymbol(ctx, account, symCode); err != nil {
			return err
		}
		_, err = l.store.AppendDeposit(ctx, account, entry.Balance, now)
		return err
	})
}
