package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/vslaledger/internal/usecase"
)

type stubLocker struct {
	acquire bool
	err     error
	calls   []string
}

func (l *stubLocker) TryLock(_ context.Context, job string, _ time.Duration) (bool, error) {
	l.calls = append(l.calls, job)
	return l.acquire, l.err
}

type stubRecorder struct {
	runs map[string]int
}

func (r *stubRecorder) JobRun(job, outcome string) {
	if r.runs == nil {
		r.runs = make(map[string]int)
	}
	r.runs[job+":"+outcome]++
}

func TestExecuteOutcomes(t *testing.T) {
	failure := errors.New("boom")

	tests := []struct {
		name    string
		locker  *stubLocker
		runErr  error
		wantRan bool
		want    string
	}{
		{name: "success without locker", wantRan: true, want: OutcomeSuccess},
		{name: "failure", runErr: failure, wantRan: true, want: OutcomeFailure},
		{name: "lock held elsewhere", locker: &stubLocker{acquire: false}, want: OutcomeSkipped},
		{name: "lock error", locker: &stubLocker{err: errors.New("redis down")}, want: OutcomeFailure},
		{name: "lock acquired", locker: &stubLocker{acquire: true}, wantRan: true, want: OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &stubRecorder{}
			opts := []Option{WithRecorder(rec)}
			if tt.locker != nil {
				opts = append(opts, WithLocker(tt.locker))
			}
			s := New(zerolog.Nop(), opts...)

			ran := false
			s.execute(context.Background(), Job{
				Name:    "test",
				Timeout: time.Second,
				Run: func(context.Context) error {
					ran = true
					return tt.runErr
				},
			})

			assert.Equal(t, tt.wantRan, ran)
			assert.Equal(t, map[string]int{"test:" + tt.want: 1}, rec.runs)
			if tt.locker != nil {
				assert.Equal(t, []string{"test"}, tt.locker.calls)
			}
		})
	}
}

func TestExecuteAppliesTimeout(t *testing.T) {
	s := New(zerolog.Nop())

	var deadline time.Time
	s.execute(context.Background(), Job{
		Name:    "test",
		Timeout: time.Minute,
		Run: func(ctx context.Context) error {
			deadline, _ = ctx.Deadline()
			return nil
		},
	})

	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestAddValidatesJob(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.Add(Job{Name: "bad", Schedule: "not a schedule", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)

	err = s.Add(Job{Name: "empty", Schedule: "* * * * *"})
	assert.Error(t, err)

	require.NoError(t, s.Add(Job{Name: "ok", Schedule: "0 2 * * *", Run: func(context.Context) error { return nil }}))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.Add(Job{Name: "ok", Schedule: "@every 1h", Run: func(context.Context) error { return nil }}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

type stubVerifier struct {
	reports []*usecase.LedgerVerification
	err     error
}

func (v stubVerifier) VerifyAll(context.Context) ([]*usecase.LedgerVerification, error) {
	return v.reports, v.err
}

type stubReminder struct {
	count int
	err   error
	calls int
}

func (r *stubReminder) RemindOverdue(context.Context) (int, error) {
	r.calls++
	return r.count, r.err
}

func TestReconcileJob(t *testing.T) {
	job := ReconcileJob("0 2 * * *", stubVerifier{
		reports: []*usecase.LedgerVerification{{GroupID: 1, Consistent: true}, {GroupID: 2}},
	}, zerolog.Nop())
	assert.Equal(t, JobReconcile, job.Name)
	assert.NoError(t, job.Run(context.Background()))

	storeErr := errors.New("connection reset")
	job = ReconcileJob("0 2 * * *", stubVerifier{err: storeErr}, zerolog.Nop())
	assert.ErrorIs(t, job.Run(context.Background()), storeErr)
}

func TestOverdueJob(t *testing.T) {
	reminder := &stubReminder{count: 3}
	job := OverdueJob("0 7 * * *", reminder)

	assert.Equal(t, JobOverdue, job.Name)
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, reminder.calls)
}
