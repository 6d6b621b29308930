package store

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/thrylos-labs/postoken/amount"
	"github.com/thrylos-labs/postoken/types"
)

// store implements types.Store on top of BadgerDB.
//
// Key layout:
//
//	st-<SYM>                          token stats row
//	bal-<owner seg><SYM>              balance row
//	dr-<owner seg><SYM>-<id be64>     deposit record
//	seq-<owner seg>                   next deposit id for the owner
//
// <owner seg> is the principal name preceded by its uvarint length, so a
// name containing a separator byte cannot alias another (owner, symbol)
// pair's key or scan prefix. Symbol codes are uppercase alpha only and
// need no framing.
//
// Ids are assigned from a single per-owner sequence, so within the
// deposit prefix the big-endian id suffix sorts records in insertion
// order. Scanning that prefix is the secondary index by symbol.
type store struct {
	db    *Database
	stats *StatsCache
}

// NewStore creates a new store instance backed by database.
func NewStore(database *Database) (types.Store, error) {
	if database == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}

	c, err := NewStatsCache(1024, 10000, 0.01)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats cache: %v", err)
	}

	return &store{db: database, stats: c}, nil
}

func (s *store) BeginTransaction() (types.TransactionContext, error) {
	return NewTransactionContext(s.db.GetDB().NewTransaction(true)), nil
}

func (s *store) CommitTransaction(ctx types.TransactionContext) error {
	if ctx == nil {
		return fmt.Errorf("nil transaction context")
	}
	if err := ctx.Commit(); err != nil {
		return err
	}
	// Evict rewritten stats rows only now that they are durable; evicting
	// earlier would let a concurrent read re-cache the old committed row.
	if tc, ok := ctx.(*TransactionContext); ok {
		for _, symCode := range tc.dirtyStats {
			s.stats.Remove(symCode)
		}
	}
	return nil
}

func (s *store) RollbackTransaction(ctx types.TransactionContext) error {
	if ctx == nil {
		return nil
	}
	return ctx.Rollback()
}

func badgerTxn(ctx types.TransactionContext) (*badger.Txn, error) {
	tc, ok := ctx.(*TransactionContext)
	if !ok || tc.Txn == nil {
		return nil, fmt.Errorf("unexpected transaction context type %T", ctx)
	}
	return tc.Txn, nil
}

func statsKey(symCode string) []byte {
	return []byte(StatsPrefix + symCode)
}

// ownerSegment frames the principal name with its uvarint length so the
// segment is self-delimiting inside a key.
func ownerSegment(owner types.Principal) []byte {
	seg := make([]byte, 0, binary.MaxVarintLen64+len(owner))
	seg = binary.AppendUvarint(seg, uint64(len(owner)))
	return append(seg, string(owner)...)
}

func balanceKey(owner types.Principal, symCode string) []byte {
	key := append([]byte(BalancePrefix), ownerSegment(owner)...)
	return append(key, symCode...)
}

func depositPrefix(owner types.Principal, symCode string) []byte {
	prefix := append([]byte(DepositPrefix), ownerSegment(owner)...)
	return append(prefix, symCode+"-"...)
}

func depositKey(owner types.Principal, symCode string, id uint64) []byte {
	var suffix [8]byte
	binary.BigEndian.PutUint64(suffix[:], id)
	return append(depositPrefix(owner, symCode), suffix[:]...)
}

func sequenceKey(owner types.Principal) []byte {
	return append([]byte(SequencePrefix), ownerSegment(owner)...)
}

// GetStats retrieves the registry row for symCode, or types.ErrNotFound.
func (s *store) GetStats(ctx types.TransactionContext, symCode string) (*types.TokenStats, error) {
	txn, err := badgerTxn(ctx)
	if err != nil {
		return nil, err
	}

	item, err := txn.Get(statsKey(symCode))
	if err == badger.ErrKeyNotFound {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving stats for %s: %w", symCode, err)
	}

	st := &types.TokenStats{}
	err = item.Value(func(val []byte) error {
		return st.Unmarshal(val)
	})
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling stats for %s: %w", symCode, err)
	}
	return st, nil
}

func (s *store) SaveStats(ctx types.TransactionContext, symCode string, st *types.TokenStats) error {
	txn, err := badgerTxn(ctx)
	if err != nil {
		return err
	}

	data, err := st.Marshal()
	if err != nil {
		return fmt.Errorf("error marshalling stats for %s: %w", symCode, err)
	}
	if err := txn.Set(statsKey(symCode), data); err != nil {
		return fmt.Errorf("error storing stats for %s: %w", symCode, err)
	}

	if tc, ok := ctx.(*TransactionContext); ok {
		tc.markStatsDirty(symCode)
	}
	return nil
}

func (s *store) GetBalanceEntry(ctx types.TransactionContext, owner types.Principal, symCode string) (*types.BalanceEntry, error) {
	txn, err := badgerTxn(ctx)
	if err != nil {
		return nil, err
	}

	item, err := txn.Get(balanceKey(owner, symCode))
	if err == badger.ErrKeyNotFound {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving balance %s/%s: %w", owner, symCode, err)
	}

	entry := &types.BalanceEntry{}
	err = item.Value(func(val []byte) error {
		return entry.Unmarshal(val)
	})
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling balance %s/%s: %w", owner, symCode, err)
	}
	return entry, nil
}

func (s *store) SaveBalanceEntry(ctx types.TransactionContext, owner types.Principal, entry *types.BalanceEntry) error {
	txn, err := badgerTxn(ctx)
	if err != nil {
		return err
	}

	data, err := entry.Marshal()
	if err != nil {
		return fmt.Errorf("error marshalling balance %s: %w", owner, err)
	}
	return txn.Set(balanceKey(owner, entry.Balance.Symbol.Code), data)
}

func (s *store) DeleteBalanceEntry(ctx types.TransactionContext, owner types.Principal, symCode string) error {
	txn, err := badgerTxn(ctx)
	if err != nil {
		return err
	}
	return txn.Delete(balanceKey(owner, symCode))
}

// AppendDeposit inserts a fresh deposit record for (owner, quantity.Symbol)
// under the owner's next sequence id and returns it.
func (s *store) AppendDeposit(ctx types.TransactionContext, owner types.Principal, quantity amount.Asset, timestamp int64) (*types.DepositRecord, error) {
	txn, err := badgerTxn(ctx)
	if err != nil {
		return nil, err
	}

	id, err := nextSequence(txn, owner)
	if err != nil {
		return nil, err
	}

	rec := &types.DepositRecord{ID: id, Quantity: quantity, Time: timestamp}
	data, err := rec.Marshal()
	if err != nil {
		return nil, fmt.Errorf("error marshalling deposit record: %w", err)
	}
	if err := txn.Set(depositKey(owner, quantity.Symbol.Code, id), data); err != nil {
		return nil, fmt.Errorf("error storing deposit record: %w", err)
	}
	return rec, nil
}

// DepositsBySymbol enumerates all of owner's deposit records for symCode
// in insertion order.
func (s *store) DepositsBySymbol(ctx types.TransactionContext, owner types.Principal, symCode string) ([]types.DepositRecord, error) {
	txn, err := badgerTxn(ctx)
	if err != nil {
		return nil, err
	}
	return scanDeposits(txn, owner, symCode)
}

// DeleteDepositsBySymbol removes every deposit record for (owner, symCode)
// and reports how many were removed.
func (s *store) DeleteDepositsBySymbol(ctx types.TransactionContext, owner types.Principal, symCode string) (int, error) {
	txn, err := badgerTxn(ctx)
	if err != nil {
		return 0, err
	}

	prefix := depositPrefix(owner, symCode)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false

	var keys [][]byte
	it := txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return 0, fmt.Errorf("error deleting deposit record: %w", err)
		}
	}
	return len(keys), nil
}

// Stats is the read-only inspection lookup; rows are served from the
// LRU cache when present.
func (s *store) Stats(symCode string) (*types.TokenStats, error) {
	if st, ok := s.stats.Get(symCode); ok {
		return st, nil
	}

	var st *types.TokenStats
	err := s.db.GetDB().View(func(txn *badger.Txn) error {
		item, err := txn.Get(statsKey(symCode))
		if err == badger.ErrKeyNotFound {
			return types.ErrNotFound
		}
		if err != nil {
			return err
		}
		st = &types.TokenStats{}
		return item.Value(func(val []byte) error {
			return st.Unmarshal(val)
		})
	})
	if err != nil {
		return nil, err
	}

	s.stats.Add(symCode, st)
	return st, nil
}

func (s *store) Balance(owner types.Principal, symCode string) (*types.BalanceEntry, error) {
	var entry *types.BalanceEntry
	err := s.db.GetDB().View(func(txn *badger.Txn) error {
		item, err := txn.Get(balanceKey(owner, symCode))
		if err == badger.ErrKeyNotFound {
			return types.ErrNotFound
		}
		if err != nil {
			return err
		}
		entry = &types.BalanceEntry{}
		return item.Value(func(val []byte) error {
			return entry.Unmarshal(val)
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *store) Deposits(owner types.Principal, symCode string) ([]types.DepositRecord, error) {
	var records []types.DepositRecord
	err := s.db.GetDB().View(func(txn *badger.Txn) error {
		var err error
		records, err = scanDeposits(txn, owner, symCode)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *store) Close() error {
	s.db.Close()
	return nil
}

func scanDeposits(txn *badger.Txn, owner types.Principal, symCode string) ([]types.DepositRecord, error) {
	prefix := depositPrefix(owner, symCode)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var records []types.DepositRecord
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var rec types.DepositRecord
		err := it.Item().Value(func(val []byte) error {
			return rec.Unmarshal(val)
		})
		if err != nil {
			return nil, fmt.Errorf("error unmarshalling deposit record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func nextSequence(txn *badger.Txn, owner types.Principal) (uint64, error) {
	key := sequenceKey(owner)

	var next uint64
	item, err := txn.Get(key)
	if err == nil {
		err = item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence value for %s", owner)
			}
			next = binary.BigEndian.Uint64(val)
			return nil
		})
		if err != nil {
			return 0, err
		}
	} else if err != badger.ErrKeyNotFound {
		return 0, fmt.Errorf("error reading sequence for %s: %w", owner, err)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next+1)
	if err := txn.Set(key, buf[:]); err != nil {
		return 0, fmt.Errorf("error advancing sequence for %s: %w", owner, err)
	}
	return next, nil
}
