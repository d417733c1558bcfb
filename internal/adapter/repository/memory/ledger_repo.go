package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository in memory.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func groupLockKey(groupID int64) string {
	return fmt.Sprintf("group:%d", groupID)
}

// LockGroup takes the group's ledger lock until tx ends.
func (r *LedgerRepository) LockGroup(ctx context.Context, tx usecase.Transaction, groupID int64) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}
	return t.lock(ctx, groupLockKey(groupID))
}

// GetLatestActive returns the newest ACTIVE entry of the group, or nil.
func (r *LedgerRepository) GetLatestActive(ctx context.Context, _ usecase.Transaction, groupID int64) (*domain.LedgerEntry, error) {
	return r.GetLatestActiveAsOf(ctx, groupID, nil)
}

// GetLatestActiveAsOf returns the newest ACTIVE entry dated on or before asOf.
func (r *LedgerRepository) GetLatestActiveAsOf(_ context.Context, groupID int64, asOf *time.Time) (*domain.LedgerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var latest *domain.LedgerEntry
	for _, e := range r.store.entries {
		if e.GroupID != groupID || !e.IsActive() {
			continue
		}
		if asOf != nil && e.TransactionDate.After(*asOf) {
			continue
		}
		if latest == nil || entryAfter(e, latest) {
			latest = e
		}
	}

	if latest == nil {
		return nil, nil
	}
	return cloneEntry(latest), nil
}

// GetByExternalRef returns the ACTIVE entry carrying ref.
func (r *LedgerRepository) GetByExternalRef(_ context.Context, _ usecase.Transaction, groupID int64, ref string) (*domain.LedgerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, e := range r.store.entries {
		if e.GroupID == groupID && e.IsActive() && e.ExternalRef != nil && *e.ExternalRef == ref {
			return cloneEntry(e), nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

// Create stores entry and assigns its ID.
func (r *LedgerRepository) Create(_ context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if entry.ExternalRef != nil {
		for _, e := range r.store.entries {
			if e.GroupID == entry.GroupID && e.IsActive() && e.ExternalRef != nil && *e.ExternalRef == *entry.ExternalRef {
				return fmt.Errorf("%w: external reference %q already used", domain.ErrConcurrencyConflict, *entry.ExternalRef)
			}
		}
	}

	r.store.entrySeq++
	entry.ID = r.store.entrySeq
	r.store.entries[entry.ID] = cloneEntry(entry)

	id := entry.ID
	t.onRollback(func() { delete(r.store.entries, id) })
	return nil
}

// GetByID returns one entry of a group.
func (r *LedgerRepository) GetByID(_ context.Context, groupID, id int64) (*domain.LedgerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.entries[id]
	if !ok || e.GroupID != groupID {
		return nil, domain.ErrEntryNotFound
	}
	return cloneEntry(e), nil
}

// GetByIDForUpdate returns one entry; the caller holds the group lock.
func (r *LedgerRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, groupID, id int64) (*domain.LedgerEntry, error) {
	if _, err := r.store.txOf(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, groupID, id)
}

// UpdateStatus changes an entry's status and reason.
func (r *LedgerRepository) UpdateStatus(_ context.Context, tx usecase.Transaction, id int64, status domain.EntryStatus, reason string, updatedAt time.Time) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}

	prev := cloneEntry(e)
	e.Status = status
	e.StatusReason = reason
	e.UpdatedAt = updatedAt

	t.onRollback(func() { r.store.entries[id] = prev })
	return nil
}

// List returns a page of entries, newest first, and the total match count.
func (r *LedgerRepository) List(_ context.Context, filter domain.EntryFilter) ([]*domain.LedgerEntry, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	matched := make([]*domain.LedgerEntry, 0)
	for _, e := range r.store.entries {
		if e.GroupID != filter.GroupID {
			continue
		}
		if filter.From != nil && e.TransactionDate.Before(domain.DateOf(*filter.From)) {
			continue
		}
		if filter.To != nil && e.TransactionDate.After(domain.DateOf(*filter.To)) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool { return entryAfter(matched[i], matched[j]) })

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []*domain.LedgerEntry{}, total, nil
	}
	end := min(start+filter.PageSize, total)

	page := make([]*domain.LedgerEntry, 0, end-start)
	for _, e := range matched[start:end] {
		page = append(page, cloneEntry(e))
	}
	return page, total, nil
}

// ListActive returns the group's ACTIVE entries, oldest first.
func (r *LedgerRepository) ListActive(_ context.Context, groupID int64) ([]*domain.LedgerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]*domain.LedgerEntry, 0)
	for _, e := range r.store.entries {
		if e.GroupID == groupID && e.IsActive() {
			entries = append(entries, cloneEntry(e))
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entryAfter(entries[j], entries[i]) })
	return entries, nil
}

// ListGroupIDs returns every group with at least one entry, ascending.
func (r *LedgerRepository) ListGroupIDs(_ context.Context) ([]int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	seen := make(map[int64]bool)
	ids := make([]int64, 0)
	for _, e := range r.store.entries {
		if !seen[e.GroupID] {
			seen[e.GroupID] = true
			ids = append(ids, e.GroupID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// entryAfter orders entries by (date, id).
func entryAfter(a, b *domain.LedgerEntry) bool {
	if !a.TransactionDate.Equal(b.TransactionDate) {
		return a.TransactionDate.After(b.TransactionDate)
	}
	return a.ID > b.ID
}

func cloneEntry(e *domain.LedgerEntry) *domain.LedgerEntry {
	c := *e
	c.Deltas = cloneAmounts(e.Deltas)
	c.Balances = cloneAmounts(e.Balances)
	c.MemberID = cloneInt64(e.MemberID)
	c.LoanID = cloneInt64(e.LoanID)
	if e.ExternalRef != nil {
		ref := *e.ExternalRef
		c.ExternalRef = &ref
	}
	return &c
}

func cloneAmounts(a domain.FundAmounts) domain.FundAmounts {
	if a == nil {
		return nil
	}
	c := make(domain.FundAmounts, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

var _ usecase.LedgerRepository = (*LedgerRepository)(nil)
