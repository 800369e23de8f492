package requests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/internal/ledger"
	"github.com/partnerly/dispatch-backend/internal/statuslog"
	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
	pkgerrors "github.com/partnerly/dispatch-backend/pkg/errors"
	"github.com/partnerly/dispatch-backend/pkg/outbox"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type syncOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
}

func (s *syncOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func setupStateMachineTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := setupRequestsTestDB(t)

	assignments := `
CREATE TABLE IF NOT EXISTS assignments (
  id TEXT PRIMARY KEY,
  request_id TEXT NOT NULL,
  partner_id TEXT NOT NULL,
  branch_id TEXT NOT NULL,
  assigned_by_user_id TEXT NOT NULL,
  assigned_at DATETIME NOT NULL,
  responded_at DATETIME,
  response TEXT NOT NULL DEFAULT 'pending',
  rejection_reason TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(assignments).Error)
	require.NoError(t, db.Exec("DELETE FROM assignments").Error)

	statusLog := `
CREATE TABLE IF NOT EXISTS status_log_entries (
  id TEXT PRIMARY KEY,
  request_id TEXT NOT NULL,
  status TEXT NOT NULL,
  actor_user_id TEXT NOT NULL,
  notes TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(statusLog).Error)
	require.NoError(t, db.Exec("DELETE FROM status_log_entries").Error)
	return db
}

// One expired assigned request, many concurrent resolvers: the partner
// accepting, the partner rejecting, and the sweep expiring the deadline.
// Exactly one attempt may commit; everyone else sees a conflict or a no-op,
// and the audit trail records a single transition.
func TestConcurrentResolutionHasExactlyOneWinner(t *testing.T) {
	db := setupStateMachineTestDB(t)

	// A single connection serializes the transactions so the guarded
	// updates decide the winner instead of sqlite lock errors.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	deadline := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	request := seedRequest(t, db, 77, enums.RequestStatusAssigned, &deadline)
	require.NoError(t, db.Create(&models.Assignment{
		ID:               uuid.New(),
		RequestID:        request.ID,
		PartnerID:        *request.PartnerID,
		BranchID:         *request.BranchID,
		AssignedByUserID: uuid.New(),
		AssignedAt:       *request.AssignedAt,
		Response:         enums.AssignmentResponsePending,
	}).Error)

	repo := NewRepository(db)
	stored, err := repo.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SLADeadline)
	observedDeadline := *stored.SLADeadline

	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Ledger:    ledger.NewRepository(db),
		StatusLog: statuslog.NewRepository(db),
		Settings:  &stubSettings{timeout: 30},
		TxRunner:  sqliteTxRunner{db: db},
		Outbox:    &syncOutbox{},
	})
	require.NoError(t, err)

	const attempts = 12
	type outcome struct {
		won bool
		err error
	}
	outcomes := make([]outcome, attempts)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ctx := context.Background()
			switch i % 3 {
			case 0:
				err := svc.Accept(ctx, AcceptInput{
					RequestID:   request.ID,
					PartnerID:   *request.PartnerID,
					ActorUserID: uuid.New(),
				})
				outcomes[i] = outcome{won: err == nil, err: err}
			case 1:
				err := svc.Reject(ctx, RejectInput{
					RequestID:   request.ID,
					PartnerID:   *request.PartnerID,
					ActorUserID: uuid.New(),
					Reason:      "no capacity",
				})
				outcomes[i] = outcome{won: err == nil, err: err}
			default:
				expired, err := svc.TimeoutExpire(ctx, ExpireInput{
					RequestID:        request.ID,
					ObservedDeadline: observedDeadline,
					TimeoutMinutes:   30,
				})
				outcomes[i] = outcome{won: expired, err: err}
			}
		}(i)
	}
	close(start)
	wg.Wait()

	var winners, losers int
	for i, result := range outcomes {
		switch {
		case result.won:
			winners++
		case result.err == nil:
			// Sweep no-op: another resolver already closed the episode.
			losers++
		case pkgerrors.IsCode(result.err, pkgerrors.CodeStateConflict):
			losers++
		default:
			t.Errorf("attempt %d failed with unexpected error: %v", i, result.err)
		}
	}
	assert.Equal(t, 1, winners, "exactly one resolver may commit")
	assert.Equal(t, attempts-1, losers)

	final, err := repo.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.NotEqual(t, enums.RequestStatusAssigned, final.Status)
	assert.Nil(t, final.SLADeadline)

	var logCount int64
	require.NoError(t, db.Model(&models.StatusLogEntry{}).
		Where("request_id = ?", request.ID).
		Count(&logCount).Error)
	assert.Equal(t, int64(1), logCount, "a single transition is logged")

	var entries []models.Assignment
	require.NoError(t, db.Where("request_id = ?", request.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.NotEqual(t, enums.AssignmentResponsePending, entries[0].Response)
	assert.NotNil(t, entries[0].RespondedAt)
}
