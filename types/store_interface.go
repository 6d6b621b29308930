package types

import (
	"github.com/thrylos-labs/postoken/amount"
)

// TransactionContext scopes every mutation of one public ledger operation
// to a single storage transaction: Commit applies all of them, Rollback
// discards all of them. The ledger never commits partial state.
type TransactionContext interface {
	Commit() error
	Rollback() error
}

// Store is the ordered keyed table the ledger runs against. Deposit
// records for one (owner, symbol) pair are enumerable contiguously and in
// insertion order regardless of how ids interleave across symbols; that
// is the secondary-index capability the consolidation algorithm depends on.
type Store interface {
	BeginTransaction() (TransactionContext, error)
	CommitTransaction(ctx TransactionContext) error
	RollbackTransaction(ctx TransactionContext) error

	// Token registry rows, keyed by symbol code.
	GetStats(ctx TransactionContext, symCode string) (*TokenStats, error)
	SaveStats(ctx TransactionContext, symCode string, st *TokenStats) error

	// Balance rows, keyed by (owner, symbol code).
	GetBalanceEntry(ctx TransactionContext, owner Principal, symCode string) (*BalanceEntry, error)
	SaveBalanceEntry(ctx TransactionContext, owner Principal, entry *BalanceEntry) error
	DeleteBalanceEntry(ctx TransactionContext, owner Principal, symCode string) error

	// Deposit records, keyed by (owner, symbol code, per-owner sequence id).
	AppendDeposit(ctx TransactionContext, owner Principal, quantity amount.Asset, timestamp int64) (*DepositRecord, error)
	DepositsBySymbol(ctx TransactionContext, owner Principal, symCode string) ([]DepositRecord, error)
	DeleteDepositsBySymbol(ctx TransactionContext, owner Principal, symCode string) (int, error)

	// Read-only inspection surface for harnesses and explorers. These run
	// outside any ledger transaction and may serve cached stats rows.
	Stats(symCode string) (*TokenStats, error)
	Balance(owner Principal, symCode string) (*BalanceEntry, error)
	Deposits(owner Principal, symCode string) ([]DepositRecord, error)

	Close() error
}
