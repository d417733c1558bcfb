package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/iho/vslaledger/internal/domain"
	"github.com/iho/vslaledger/internal/usecase"
)

// AssessmentRepository implements usecase.AssessmentRepository in memory.
type AssessmentRepository struct {
	store *Store
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(store *Store) *AssessmentRepository {
	return &AssessmentRepository{store: store}
}

// LockMember takes the member's assessment lock until tx ends.
func (r *AssessmentRepository) LockMember(ctx context.Context, tx usecase.Transaction, memberID int64) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}
	return t.lock(ctx, fmt.Sprintf("member:%d", memberID))
}

// MarkNotCurrent clears the current flag on all of a member's assessments.
func (r *AssessmentRepository) MarkNotCurrent(_ context.Context, tx usecase.Transaction, memberID int64) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, a := range r.store.assessments {
		if a.MemberID != memberID || !a.IsCurrent {
			continue
		}
		a.IsCurrent = false
		restored := a
		t.onRollback(func() { restored.IsCurrent = true })
	}
	return nil
}

// Create stores assessment and assigns its ID.
func (r *AssessmentRepository) Create(_ context.Context, tx usecase.Transaction, assessment *domain.EligibilityAssessment) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.assessmentSeq++
	assessment.ID = r.store.assessmentSeq
	r.store.assessments[assessment.ID] = cloneAssessment(assessment)

	id := assessment.ID
	t.onRollback(func() { delete(r.store.assessments, id) })
	return nil
}

// GetCurrent returns the member's current assessment.
func (r *AssessmentRepository) GetCurrent(_ context.Context, memberID int64) (*domain.EligibilityAssessment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var current *domain.EligibilityAssessment
	for _, a := range r.store.assessments {
		if a.MemberID == memberID && a.IsCurrent && (current == nil || a.ID > current.ID) {
			current = a
		}
	}

	if current == nil {
		return nil, domain.ErrAssessmentNotFound
	}
	return cloneAssessment(current), nil
}

// ListByMember returns a member's assessments, newest first.
func (r *AssessmentRepository) ListByMember(_ context.Context, memberID int64, limit, offset int) ([]*domain.EligibilityAssessment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	matched := make([]*domain.EligibilityAssessment, 0)
	for _, a := range r.store.assessments {
		if a.MemberID == memberID {
			matched = append(matched, a)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if offset >= len(matched) {
		return []*domain.EligibilityAssessment{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	out := make([]*domain.EligibilityAssessment, 0, len(matched))
	for _, a := range matched {
		out = append(out, cloneAssessment(a))
	}
	return out, nil
}

func cloneAssessment(a *domain.EligibilityAssessment) *domain.EligibilityAssessment {
	c := *a
	if a.RecommendedTerm != nil {
		term := *a.RecommendedTerm
		c.RecommendedTerm = &term
	}
	return &c
}

var _ usecase.AssessmentRepository = (*AssessmentRepository)(nil)
