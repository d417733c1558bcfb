package scheduler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/vslaledger/internal/usecase"
)

// Job names.
const (
	JobReconcile = "reconcile"
	JobOverdue   = "overdue_reminders"
)

// Verifier checks every group's ledger.
type Verifier interface {
	VerifyAll(ctx context.Context) ([]*usecase.LedgerVerification, error)
}

// Reminder announces overdue loans.
type Reminder interface {
	RemindOverdue(ctx context.Context) (int, error)
}

// ReconcileJob verifies all ledgers and logs the inconsistent ones.
func ReconcileJob(schedule string, v Verifier, logger zerolog.Logger) Job {
	return Job{
		Name:     JobReconcile,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			reports, err := v.VerifyAll(ctx)
			if err != nil {
				return err
			}

			inconsistent := 0
			for _, r := range reports {
				if !r.Consistent {
					inconsistent++
				}
			}
			logger.Info().
				Int("groups", len(reports)).
				Int("inconsistent", inconsistent).
				Msg("ledger reconciliation finished")
			return nil
		},
	}
}

// OverdueJob dispatches reminders for overdue loans.
func OverdueJob(schedule string, r Reminder) Job {
	return Job{
		Name:     JobOverdue,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := r.RemindOverdue(ctx)
			return err
		},
	}
}
