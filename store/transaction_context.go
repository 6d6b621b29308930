package store

import (
	"errors"

	"github.com/dgraph-io/badger/v3"
)

// TransactionContext wraps one badger transaction. A public ledger
// operation runs entirely inside one context; Commit applies the whole
// operation, Rollback discards it. dirtyStats collects the symbol codes
// whose registry row the transaction rewrote, so cache eviction can wait
// until the write is actually committed.
type TransactionContext struct {
	Txn        *badger.Txn
	dirtyStats []string
	done       bool
}

func NewTransactionContext(txn *badger.Txn) *TransactionContext {
	return &TransactionContext{Txn: txn}
}

func (tc *TransactionContext) Commit() error {
	if tc.done {
		return errors.New("transaction already finished")
	}
	tc.done = true
	return tc.Txn.Commit()
}

// markStatsDirty records that the transaction rewrote symCode's registry
// row.
func (tc *TransactionContext) markStatsDirty(symCode string) {
	tc.dirtyStats = append(tc.dirtyStats, symCode)
}

func (tc *TransactionContext) Rollback() error {
	if tc.done {
		return nil
	}
	tc.done = true
	tc.Txn.Discard()
	return nil
}
