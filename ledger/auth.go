package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/thrylos-labs/postoken/types"
)

// Authorizer is the authenticated call boundary. The host decides which
// principals the current caller may act for; the ledger only consumes the
// verdict, before any mutation.
type Authorizer interface {
	// RequireAuth fails when the caller lacks authority over p.
	RequireAuth(p types.Principal) error
	// HasAuth reports authority over p without failing.
	HasAuth(p types.Principal) bool
	// IsAccount reports whether p names an existing account.
	IsAccount(p types.Principal) bool
}

// Clock is the current-time oracle, accurate to one second.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// AuthTable is an in-memory Authorizer for tests and single-process
// hosts: a set of known accounts plus the principals the current caller
// holds authority for.
type AuthTable struct {
	mu       sync.RWMutex
	accounts map[types.Principal]bool
	granted  map[types.Principal]bool
}

func NewAuthTable() *AuthTable {
	return &AuthTable{
		accounts: make(map[types.Principal]bool),
		granted:  make(map[types.Principal]bool),
	}
}

// AddAccount registers existing accounts.
func (t *AuthTable) AddAccount(ps ...types.Principal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range ps {
		t.accounts[p] = true
	}
}

// Grant gives the current caller authority over the named principals.
func (t *AuthTable) Grant(ps ...types.Principal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range ps {
		t.granted[p] = true
	}
}

// Revoke withdraws previously granted authority.
func (t *AuthTable) Revoke(ps ...types.Principal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range ps {
		delete(t.granted, p)
	}
}

func (t *AuthTable) RequireAuth(p types.Principal) error {
	if !t.HasAuth(p) {
		return fmt.Errorf("%w: %s", types.ErrUnauthorized, p)
	}
	return nil
}

func (t *AuthTable) HasAuth(p types.Principal) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.granted[p]
}

func (t *AuthTable) IsAccount(p types.Principal) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.accounts[p]
}
