// Package memory is an in-process storage backend. Writes are applied
// immediately and undone on rollback; row and advisory locks are emulated
// with per-key locks owned by the transaction until it ends. Readers outside
// a transaction may observe uncommitted writes.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory: transaction already finished")

// ErrForeignTx is returned when a repository receives a transaction it
// did not create.
var ErrForeignTx = errors.New("memory: transaction does not belong to this store")

// Store holds all tables of the memory backend.
type Store struct {
	mu sync.RWMutex

	entries      map[int64]*domain.LedgerEntry
	loans        map[int64]*domain.Loan
	installments map[int64][]*domain.RepaymentInstallment // by loan
	assessments  map[int64]*domain.EligibilityAssessment

	entrySeq       int64
	loanSeq        int64
	installmentSeq int64
	assessmentSeq  int64

	locks *keyedLocks
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries:      make(map[int64]*domain.LedgerEntry),
		loans:        make(map[int64]*domain.Loan),
		installments: make(map[int64][]*domain.RepaymentInstallment),
		assessments:  make(map[int64]*domain.EligibilityAssessment),
		locks:        newKeyedLocks(),
	}
}

// Tx is a memory transaction: an undo log plus the locks it owns.
type Tx struct {
	store *Store
	mu    sync.Mutex
	undo  []func()
	keys  []string
	done  bool
}

// Commit keeps the writes and releases the locks.
func (t *Tx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxDone
	}

	t.done = true
	t.undo = nil
	t.releaseLocked()
	return nil
}

// Rollback reverts the writes and releases the locks. Rolling back a
// finished transaction is a no-op.
func (t *Tx) Rollback(_ context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil
	}
	t.done = true
	undo := t.undo
	t.undo = nil
	t.mu.Unlock()

	t.store.mu.Lock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	t.store.mu.Unlock()

	t.mu.Lock()
	t.releaseLocked()
	t.mu.Unlock()
	return nil
}

func (t *Tx) releaseLocked() {
	for _, key := range t.keys {
		t.store.locks.unlock(key, t)
	}
	t.keys = nil
}

// lock takes key for the rest of the transaction. Re-locking a key the
// transaction already owns returns immediately.
func (t *Tx) lock(ctx context.Context, key string) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTxDone
	}
	t.mu.Unlock()

	acquired, err := t.store.locks.lock(ctx, key, t)
	if err != nil {
		return err
	}

	if acquired {
		t.mu.Lock()
		t.keys = append(t.keys, key)
		t.mu.Unlock()
	}
	return nil
}

// onRollback records how to revert a write. Must be called with store.mu held.
func (t *Tx) onRollback(fn func()) {
	t.mu.Lock()
	t.undo = append(t.undo, fn)
	t.mu.Unlock()
}

// TxManager begins memory transactions.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(_ context.Context) (usecase.Transaction, error) {
	return &Tx{store: m.store}, nil
}

func (s *Store) txOf(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil || t.store != s {
		return nil, ErrForeignTx
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, ErrTxDone
	}
	return t, nil
}

// keyedLocks is a set of named mutexes with an owning transaction.
type keyedLocks struct {
	mu   sync.Mutex
	held map[string]*heldLock
}

type heldLock struct {
	owner    *Tx
	released chan struct{}
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{held: make(map[string]*heldLock)}
}

// lock blocks until owner holds key or ctx ends. It reports whether the
// lock was newly acquired (false when owner already held it).
func (l *keyedLocks) lock(ctx context.Context, key string, owner *Tx) (bool, error) {
	for {
		l.mu.Lock()
		h, ok := l.held[key]
		if !ok {
			l.held[key] = &heldLock{owner: owner, released: make(chan struct{})}
			l.mu.Unlock()
			return true, nil
		}
		if h.owner == owner {
			l.mu.Unlock()
			return false, nil
		}
		wait := h.released
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return false, errors.Join(domain.ErrConcurrencyConflict, ctx.Err())
		}
	}
}

func (l *keyedLocks) unlock(key string, owner *Tx) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.held[key]
	if !ok || h.owner != owner {
		return
	}
	delete(l.held, key)
	close(h.released)
}

var _ usecase.TransactionManager = (*TxManager)(nil)
var _ usecase.Transaction = (*Tx)(nil)
