package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/partnerly/dispatch-backend/internal/requests"
	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/logger"
	"github.com/partnerly/dispatch-backend/pkg/metrics"
)

type fakeExpiredReader struct {
	candidates []models.Request
	err        error
}

func (f *fakeExpiredReader) FindExpiredAssigned(ctx context.Context, now time.Time) ([]models.Request, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type expireCall struct {
	input requests.ExpireInput
}

type fakeExpirer struct {
	calls   []expireCall
	results map[uuid.UUID]bool
	errFor  map[uuid.UUID]error
}

func (f *fakeExpirer) TimeoutExpire(ctx context.Context, input requests.ExpireInput) (bool, error) {
	f.calls = append(f.calls, expireCall{input: input})
	if err, ok := f.errFor[input.RequestID]; ok {
		return false, err
	}
	return f.results[input.RequestID], nil
}

type fakeTimeoutSource struct {
	minutes int
}

func (f *fakeTimeoutSource) SLATimeoutMinutes(ctx context.Context, partnerID uuid.UUID) int {
	return f.minutes
}

func assignedCandidate(deadline time.Time) models.Request {
	partnerID := uuid.New()
	return models.Request{
		ID:          uuid.New(),
		PartnerID:   &partnerID,
		SLADeadline: &deadline,
	}
}

func newSLAExpiryJobTest(t *testing.T, reader *fakeExpiredReader, expirer *fakeExpirer) *SLAExpiryJob {
	t.Helper()

	job, err := NewSLAExpiryJob(SLAExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Reader:   reader,
		Requests: expirer,
		Settings: &fakeTimeoutSource{minutes: 30},
	})
	if err != nil {
		t.Fatalf("NewSLAExpiryJob: %v", err)
	}
	return job
}

func TestSLAExpiryJob_expiresOverdueAssignments(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	first := assignedCandidate(now.Add(-5 * time.Minute))
	second := assignedCandidate(now.Add(-time.Minute))

	reader := &fakeExpiredReader{candidates: []models.Request{first, second}}
	expirer := &fakeExpirer{results: map[uuid.UUID]bool{first.ID: true, second.ID: true}}
	job := newSLAExpiryJobTest(t, reader, expirer)
	job.now = func() time.Time { return now }

	registry := prometheus.NewRegistry()
	job.metrics = metrics.NewSLAMetrics(registry)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.calls) != 2 {
		t.Fatalf("expected 2 expiry calls, got %d", len(expirer.calls))
	}
	call := expirer.calls[0]
	if call.input.RequestID != first.ID {
		t.Fatalf("unexpected request id %s", call.input.RequestID)
	}
	if !call.input.ObservedDeadline.Equal(*first.SLADeadline) {
		t.Fatalf("expiry must carry the observed deadline, got %v", call.input.ObservedDeadline)
	}
	if call.input.TimeoutMinutes != 30 {
		t.Fatalf("unexpected timeout minutes %d", call.input.TimeoutMinutes)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "sla_requests_expired_total" {
			found = true
			if got := family.GetMetric()[0].GetCounter().GetValue(); got != 2 {
				t.Fatalf("expected 2 expired, got %v", got)
			}
		}
	}
	if !found {
		t.Fatal("expected sla_requests_expired_total metric")
	}
}

func TestSLAExpiryJob_skipsResolvedCandidates(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	resolved := assignedCandidate(now.Add(-5 * time.Minute))
	overdue := assignedCandidate(now.Add(-time.Minute))

	reader := &fakeExpiredReader{candidates: []models.Request{resolved, overdue}}
	// The first candidate was accepted between the query and its turn; the
	// guarded update reports nothing to do.
	expirer := &fakeExpirer{results: map[uuid.UUID]bool{resolved.ID: false, overdue.ID: true}}
	job := newSLAExpiryJobTest(t, reader, expirer)
	job.now = func() time.Time { return now }

	registry := prometheus.NewRegistry()
	job.metrics = metrics.NewSLAMetrics(registry)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.calls) != 2 {
		t.Fatalf("expected both candidates attempted, got %d", len(expirer.calls))
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == "sla_requests_expired_total" {
			if got := family.GetMetric()[0].GetCounter().GetValue(); got != 1 {
				t.Fatalf("expected 1 expired, got %v", got)
			}
		}
	}
}

func TestSLAExpiryJob_oneFailureDoesNotBlockOthers(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	failing := assignedCandidate(now.Add(-10 * time.Minute))
	healthy := assignedCandidate(now.Add(-time.Minute))

	reader := &fakeExpiredReader{candidates: []models.Request{failing, healthy}}
	expirer := &fakeExpirer{
		results: map[uuid.UUID]bool{healthy.ID: true},
		errFor:  map[uuid.UUID]error{failing.ID: errors.New("db unavailable")},
	}
	job := newSLAExpiryJobTest(t, reader, expirer)
	job.now = func() time.Time { return now }

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if len(expirer.calls) != 2 {
		t.Fatalf("expected both candidates attempted, got %d", len(expirer.calls))
	}
}

func TestSLAExpiryJob_idempotentRerun(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	candidate := assignedCandidate(now.Add(-time.Minute))

	reader := &fakeExpiredReader{candidates: []models.Request{candidate}}
	expirer := &fakeExpirer{results: map[uuid.UUID]bool{candidate.ID: true}}
	job := newSLAExpiryJobTest(t, reader, expirer)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Second cycle sees the same row only if it is still assigned; the
	// expiry already cleared it, so the rerun reverts nothing.
	reader.candidates = nil
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(expirer.calls) != 1 {
		t.Fatalf("expected a single expiry call, got %d", len(expirer.calls))
	}
}
