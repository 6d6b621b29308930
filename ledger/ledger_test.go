package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrylos-labs/postoken/amount"
	"github.com/thrylos-labs/postoken/config"
	"github.com/thrylos-labs/postoken/store"
	"github.com/thrylos-labs/postoken/types"
)

type fakeClock struct {
	now int64
}

func (c *fakeClock) Now() int64 { return c.now }

func (c *fakeClock) advanceDays(d int64) { c.now += d * config.SecondsPerDay }

func newTestLedger(t *testing.T) (*Ledger, *AuthTable, *fakeClock) {
	t.Helper()
	db, err := store.NewDatabase(t.TempDir())
	require.NoError(t, err)
	st, err := store.NewStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	auth := NewAuthTable()
	auth.AddAccount("postoken", "alice", "bob", "carol")
	auth.Grant("postoken")
	clk := &fakeClock{now: 1_700_000_000}
	return New(st, auth, clk, "postoken"), auth, clk
}

func mustAsset(t *testing.T, s string) amount.Asset {
	t.Helper()
	a, err := amount.FromString(s)
	require.NoError(t, err)
	return a
}

func TestCreate(t *testing.T) {
	t.Run("requires contract authority", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		auth.Revoke("postoken")
		err := l.Create("alice", mustAsset(t, "1000.0000 TOK"))
		assert.ErrorIs(t, err, types.ErrUnauthorized)
	})

	t.Run("rejects non-positive max supply", func(t *testing.T) {
		l, _, _ := newTestLedger(t)
		err := l.Create("alice", mustAsset(t, "0.0000 TOK"))
		assert.ErrorIs(t, err, types.ErrValidation)
		assert.Contains(t, err.Error(), "max-supply must be positive")
	})

	t.Run("rejects duplicate symbol", func(t *testing.T) {
		l, _, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		err := l.Create("bob", mustAsset(t, "500.0000 TOK"))
		assert.ErrorIs(t, err, types.ErrValidation)
		assert.Contains(t, err.Error(), "token with symbol already exists")
	})

	t.Run("registers stats row with zero supply", func(t *testing.T) {
		l, _, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000000.0000 TOK")))

		st, err := l.store.Stats("TOK")
		require.NoError(t, err)
		assert.Equal(t, types.Principal("alice"), st.Issuer)
		assert.Equal(t, int64(0), st.Supply.Amount)
		assert.Equal(t, mustAsset(t, "1000000.0000 TOK"), st.MaxSupply)
		assert.False(t, st.StakingConfigured())
	})
}

func TestIssue(t *testing.T) {
	t.Run("fails before create", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		auth.Grant("alice")
		err := l.Issue("alice", mustAsset(t, "10.0000 TOK"), "")
		assert.ErrorIs(t, err, types.ErrValidation)
		assert.Contains(t, err.Error(), "create token before issue")
	})

	t.Run("requires issuer authority", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		auth.Grant("bob")
		auth.Revoke("alice")
		err := l.Issue("bob", mustAsset(t, "10.0000 TOK"), "")
		assert.ErrorIs(t, err, types.ErrUnauthorized)
	})

	t.Run("rejects zero quantity and precision mismatch", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		auth.Grant("alice")

		err := l.Issue("alice", mustAsset(t, "0.0000 TOK"), "")
		assert.Contains(t, err.Error(), "must issue positive quantity")

		err = l.Issue("alice", mustAsset(t, "10.00 TOK"), "")
		assert.Contains(t, err.Error(), "symbol precision mismatch")
	})

	t.Run("rejects quantity beyond max supply", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "100.0000 TOK")))
		auth.Grant("alice")
		err := l.Issue("alice", mustAsset(t, "100.0001 TOK"), "")
		assert.ErrorIs(t, err, types.ErrSupply)
		assert.Contains(t, err.Error(), "quantity exceeds available supply")
	})

	t.Run("credits issuer and appends one deposit record", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		auth.Grant("alice")
		require.NoError(t, l.Issue("alice", mustAsset(t, "10.0000 TOK"), "genesis"))

		st, err := l.store.Stats("TOK")
		require.NoError(t, err)
		assert.Equal(t, mustAsset(t, "10.0000 TOK"), st.Supply)

		bal, err := l.store.Balance("alice", "TOK")
		require.NoError(t, err)
		assert.Equal(t, mustAsset(t, "10.0000 TOK"), bal.Balance)

		recs, err := l.store.Deposits("alice", "TOK")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, int64(100000), recs[0].Quantity.Amount)
	})

	t.Run("issue to another account dispatches a transfer", func(t *testing.T) {
		l, auth, clk := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		auth.Grant("alice")
		require.NoError(t, l.Issue("bob", mustAsset(t, "10.0000 TOK"), ""))

		bal, err := l.store.Balance("bob", "TOK")
		require.NoError(t, err)
		assert.Equal(t, mustAsset(t, "10.0000 TOK"), bal.Balance)

		// The issuer's row exists but was swept empty by the transfer.
		issuerBal, err := l.store.Balance("alice", "TOK")
		require.NoError(t, err)
		assert.Equal(t, int64(0), issuerBal.Balance.Amount)
		issuerRecs, err := l.store.Deposits("alice", "TOK")
		require.NoError(t, err)
		assert.Empty(t, issuerRecs)

		recs, err := l.store.Deposits("bob", "TOK")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, clk.now, recs[0].Time)
	})

	t.Run("rejects oversized memo", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		auth.Grant("alice")
		err := l.Issue("alice", mustAsset(t, "1.0000 TOK"), strings.Repeat("x", config.MaxMemoBytes+1))
		assert.Contains(t, err.Error(), "memo has more than 256 bytes")
	})
}

func TestRetire(t *testing.T) {
	setup := func(t *testing.T) (*Ledger, *AuthTable) {
		l, auth, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		auth.Grant("alice")
		require.NoError(t, l.Issue("alice", mustAsset(t, "10.0000 TOK"), ""))
		return l, auth
	}

	t.Run("rejects zero quantity", func(t *testing.T) {
		l, _ := setup(t)
		err := l.Retire(mustAsset(t, "0.0000 TOK"), "")
		assert.Contains(t, err.Error(), "must retire positive quantity")
	})

	t.Run("rejects retiring beyond issuer balance", func(t *testing.T) {
		l, _ := setup(t)
		err := l.Retire(mustAsset(t, "10.0001 TOK"), "")
		assert.ErrorIs(t, err, types.ErrSupply)
	})

	t.Run("burns supply and debits the issuer", func(t *testing.T) {
		l, _ := setup(t)
		require.NoError(t, l.Retire(mustAsset(t, "4.0000 TOK"), "burn"))

		st, err := l.store.Stats("TOK")
		require.NoError(t, err)
		assert.Equal(t, mustAsset(t, "6.0000 TOK"), st.Supply)

		bal, err := l.store.Balance("alice", "TOK")
		require.NoError(t, err)
		assert.Equal(t, mustAsset(t, "6.0000 TOK"), bal.Balance)
	})
}

func TestTransfer(t *testing.T) {
	setup := func(t *testing.T) (*Ledger, *AuthTable, *fakeClock) {
		l, auth, clk := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		auth.Grant("alice")
		require.NoError(t, l.Issue("alice", mustAsset(t, "100.0000 TOK"), ""))
		return l, auth, clk
	}

	t.Run("rejects transfer to self", func(t *testing.T) {
		l, _, _ := setup(t)
		err := l.Transfer("alice", "alice", mustAsset(t, "1.0000 TOK"), "")
		assert.Contains(t, err.Error(), "cannot transfer to self")
	})

	t.Run("rejects unknown recipient", func(t *testing.T) {
		l, _, _ := setup(t)
		err := l.Transfer("alice", "nobody", mustAsset(t, "1.0000 TOK"), "")
		assert.Contains(t, err.Error(), "to account does not exist")
	})

	t.Run("rejects overdraft and leaves records untouched", func(t *testing.T) {
		l, _, _ := setup(t)
		before, err := l.store.Deposits("alice", "TOK")
		require.NoError(t, err)

		err = l.Transfer("alice", "bob", mustAsset(t, "100.0001 TOK"), "")
		assert.ErrorIs(t, err, types.ErrBalance)
		assert.Contains(t, err.Error(), "overdrawn balance")

		after, err := l.store.Deposits("alice", "TOK")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("fails when sender has no balance row", func(t *testing.T) {
		l, auth, _ := setup(t)
		auth.Grant("bob")
		err := l.Transfer("bob", "carol", mustAsset(t, "1.0000 TOK"), "")
		assert.Contains(t, err.Error(), "no balance object found")
	})

	t.Run("moves funds and restarts both coin-age clocks", func(t *testing.T) {
		l, _, clk := setup(t)
		clk.advanceDays(50)
		require.NoError(t, l.Transfer("alice", "bob", mustAsset(t, "30.0000 TOK"), "hi"))

		aliceBal, err := l.store.Balance("alice", "TOK")
		require.NoError(t, err)
		assert.Equal(t, mustAsset(t, "70.0000 TOK"), aliceBal.Balance)

		bobBal, err := l.store.Balance("bob", "TOK")
		require.NoError(t, err)
		assert.Equal(t, mustAsset(t, "30.0000 TOK"), bobBal.Balance)

		// Sender's records collapse to one fresh record for the remainder.
		aliceRecs, err := l.store.Deposits("alice", "TOK")
		require.NoError(t, err)
		require.Len(t, aliceRecs, 1)
		assert.Equal(t, mustAsset(t, "70.0000 TOK"), aliceRecs[0].Quantity)
		assert.Equal(t, clk.now, aliceRecs[0].Time)

		bobRecs, err := l.store.Deposits("bob", "TOK")
		require.NoError(t, err)
		require.Len(t, bobRecs, 1)
		assert.Equal(t, clk.now, bobRecs[0].Time)
	})

	t.Run("credits never merge records", func(t *testing.T) {
		l, _, clk := setup(t)
		require.NoError(t, l.Transfer("alice", "bob", mustAsset(t, "1.0000 TOK"), ""))
		clk.advanceDays(1)
		require.NoError(t, l.Transfer("alice", "bob", mustAsset(t, "2.0000 TOK"), ""))

		recs, err := l.store.Deposits("bob", "TOK")
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, mustAsset(t, "1.0000 TOK"), recs[0].Quantity)
		assert.Equal(t, mustAsset(t, "2.0000 TOK"), recs[1].Quantity)
		assert.Less(t, recs[0].Time, recs[1].Time)
	})
}

func TestOpenClose(t *testing.T) {
	sym, err := amount.NewSymbol("TOK", 4)
	require.NoError(t, err)

	t.Run("open requires existing symbol", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		auth.Grant("bob")
		err := l.Open("bob", sym, "bob")
		assert.Contains(t, err.Error(), "symbol does not exist")
	})

	t.Run("open creates a zero row, close removes it", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		auth.Grant("bob")

		require.NoError(t, l.Open("bob", sym, "bob"))
		bal, err := l.store.Balance("bob", "TOK")
		require.NoError(t, err)
		assert.Equal(t, int64(0), bal.Balance.Amount)

		// Re-open is a no-op.
		require.NoError(t, l.Open("bob", sym, "bob"))

		require.NoError(t, l.Close("bob", sym))
		_, err = l.store.Balance("bob", "TOK")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("close rejects a funded row", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
		auth.Grant("alice")
		require.NoError(t, l.Issue("alice", mustAsset(t, "1.0000 TOK"), ""))

		err := l.Close("alice", sym)
		assert.Contains(t, err.Error(), "Cannot close because the balance is not zero.")
	})

	t.Run("close rejects a missing row", func(t *testing.T) {
		l, auth, _ := newTestLedger(t)
		auth.Grant("bob")
		err := l.Close("bob", sym)
		assert.Contains(t, err.Error(), "Balance row already deleted or never existed.")
	})
}

// Sum of an owner's deposit records must always equal the balance row.
func TestDepositRecordsMatchBalance(t *testing.T) {
	l, auth, clk := newTestLedger(t)
	require.NoError(t, l.Create("alice", mustAsset(t, "1000.0000 TOK")))
	auth.Grant("alice", "bob")

	require.NoError(t, l.Issue("alice", mustAsset(t, "100.0000 TOK"), ""))
	clk.advanceDays(3)
	require.NoError(t, l.Transfer("alice", "bob", mustAsset(t, "10.0000 TOK"), ""))
	clk.advanceDays(3)
	require.NoError(t, l.Transfer("alice", "bob", mustAsset(t, "5.5000 TOK"), ""))
	require.NoError(t, l.Transfer("bob", "carol", mustAsset(t, "0.2500 TOK"), ""))
	require.NoError(t, l.Retire(mustAsset(t, "20.0000 TOK"), ""))

	for _, owner := range []types.Principal{"alice", "bob", "carol"} {
		bal, err := l.store.Balance(owner, "TOK")
		require.NoError(t, err)
		recs, err := l.store.Deposits(owner, "TOK")
		require.NoError(t, err)
		var sum int64
		for _, r := range recs {
			sum += r.Quantity.Amount
		}
		assert.Equal(t, bal.Balance.Amount, sum, "owner %s", owner)
	}
}
