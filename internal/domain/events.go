package domain

import "time"

// Event types
const (
	EventTypeEntryPosted        = "ledger.entry_posted"
	EventTypeEntryStatusChanged = "ledger.entry_status_changed"
	EventTypeLoanRequested      = "loan.requested"
	EventTypeLoanApproved       = "loan.approved"
	EventTypeLoanDisbursed      = "loan.disbursed"
	EventTypeLoanRepaid         = "loan.repayment_recorded"
	EventTypeLoanClosed         = "loan.closed"
	EventTypeLoanCancelled      = "loan.cancelled"
	EventTypeLoanDefaulted      = "loan.defaulted"
	EventTypeLoanOverdue        = "loan.overdue"
	EventTypeMemberAssessed     = "eligibility.assessed"
)

// Aggregate types
const (
	AggregateTypeEntry      = "ledger_entry"
	AggregateTypeLoan       = "loan"
	AggregateTypeAssessment = "eligibility_assessment"
)

// Event is a notification emitted after a state change has been committed.
// Delivery is best effort.
type Event struct {
	ID            string
	AggregateID   int64
	AggregateType string
	EventType     string
	GroupID       int64
	MemberID      *int64
	Payload       map[string]any
	OccurredAt    time.Time
}

// LoanEventType maps a loan status to the event announcing it.
func LoanEventType(status LoanStatus) string {
	switch status {
	case LoanStatusPending:
		return EventTypeLoanRequested
	case LoanStatusApproved:
		return EventTypeLoanApproved
	case LoanStatusDisbursed:
		return EventTypeLoanDisbursed
	case LoanStatusClosed:
		return EventTypeLoanClosed
	case LoanStatusCancelled:
		return EventTypeLoanCancelled
	case LoanStatusDefaulted:
		return EventTypeLoanDefaulted
	default:
		return EventTypeLoanRepaid
	}
}
