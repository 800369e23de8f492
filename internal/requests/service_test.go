package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/internal/ledger"
	"github.com/partnerly/dispatch-backend/internal/statuslog"
	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
	pkgerrors "github.com/partnerly/dispatch-backend/pkg/errors"
	"github.com/partnerly/dispatch-backend/pkg/outbox"
)

type stubRequestsRepo struct {
	request     *models.Request
	lastGuards  map[string]any
	lastUpdates map[string]any
	nextNumber  int64
}

func (s *stubRequestsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubRequestsRepo) Create(ctx context.Context, request *models.Request) (*models.Request, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	s.nextNumber++
	request.RequestNumber = 1000 + s.nextNumber
	s.request = request
	return request, nil
}

func (s *stubRequestsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	if s.request == nil || s.request.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.request
	return &copied, nil
}

func (s *stubRequestsRepo) FindByNumber(ctx context.Context, number int64) (*models.Request, error) {
	if s.request == nil || s.request.RequestNumber != number {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.request
	return &copied, nil
}

func (s *stubRequestsRepo) List(ctx context.Context, params ListParams) ([]models.Request, error) {
	if s.request == nil {
		return nil, nil
	}
	return []models.Request{*s.request}, nil
}

func (s *stubRequestsRepo) FindExpiredAssigned(ctx context.Context, now time.Time) ([]models.Request, error) {
	if s.request == nil || s.request.Status != enums.RequestStatusAssigned {
		return nil, nil
	}
	if s.request.SLADeadline == nil || !s.request.SLADeadline.Before(now) {
		return nil, nil
	}
	return []models.Request{*s.request}, nil
}

// UpdateGuarded mirrors the conditional UPDATE: guards are evaluated against
// the stored row and updates apply only when every guard still holds.
func (s *stubRequestsRepo) UpdateGuarded(ctx context.Context, id uuid.UUID, guards map[string]any, updates map[string]any) (int64, error) {
	s.lastGuards = guards
	s.lastUpdates = updates
	if s.request == nil || s.request.ID != id {
		return 0, nil
	}
	for column, value := range guards {
		switch column {
		case "status":
			if value.(enums.RequestStatus) != s.request.Status {
				return 0, nil
			}
		case "partner_id":
			if s.request.PartnerID == nil || *s.request.PartnerID != value.(uuid.UUID) {
				return 0, nil
			}
		case "sla_deadline":
			if s.request.SLADeadline == nil || !s.request.SLADeadline.Equal(value.(time.Time)) {
				return 0, nil
			}
		}
	}
	for column, value := range updates {
		switch column {
		case "status":
			s.request.Status = value.(enums.RequestStatus)
		case "partner_id":
			s.request.PartnerID = asUUIDPtr(value)
		case "branch_id":
			s.request.BranchID = asUUIDPtr(value)
		case "assigned_by_user_id":
			s.request.AssignedByID = asUUIDPtr(value)
		case "closed_by_user_id":
			s.request.ClosedByUserID = asUUIDPtr(value)
		case "assigned_at":
			s.request.AssignedAt = asTimePtr(value)
		case "sla_deadline":
			s.request.SLADeadline = asTimePtr(value)
		case "confirmed_at":
			s.request.ConfirmedAt = asTimePtr(value)
		case "rejected_at":
			s.request.RejectedAt = asTimePtr(value)
		case "in_progress_at":
			s.request.InProgressAt = asTimePtr(value)
		case "completed_at":
			s.request.CompletedAt = asTimePtr(value)
		case "closed_at":
			s.request.ClosedAt = asTimePtr(value)
		case "rating":
			rating := value.(int)
			s.request.Rating = &rating
		case "feedback":
			feedback := value.(string)
			s.request.Feedback = &feedback
		}
	}
	return 1, nil
}

func asUUIDPtr(value any) *uuid.UUID {
	if value == nil {
		return nil
	}
	id := value.(uuid.UUID)
	return &id
}

func asTimePtr(value any) *time.Time {
	if value == nil {
		return nil
	}
	ts := value.(time.Time)
	return &ts
}

type stubLedger struct {
	open     *models.Assignment
	history  []models.Assignment
	resolved []enums.AssignmentResponse
	reason   *string
}

func (s *stubLedger) WithTx(tx *gorm.DB) ledger.Repository {
	return s
}

func (s *stubLedger) Open(ctx context.Context, entry *models.Assignment) (*models.Assignment, error) {
	entry.ID = uuid.New()
	entry.Response = enums.AssignmentResponsePending
	s.open = entry
	s.history = append(s.history, *entry)
	return entry, nil
}

func (s *stubLedger) OpenByRequest(ctx context.Context, requestID uuid.UUID) (*models.Assignment, error) {
	if s.open == nil || s.open.RequestID != requestID {
		return nil, nil
	}
	return s.open, nil
}

func (s *stubLedger) ResolveOpen(ctx context.Context, requestID uuid.UUID, partnerID *uuid.UUID, response enums.AssignmentResponse, reason *string, respondedAt time.Time) (int64, error) {
	if s.open == nil || s.open.RequestID != requestID {
		return 0, nil
	}
	if partnerID != nil && s.open.PartnerID != *partnerID {
		return 0, nil
	}
	s.open.Response = response
	s.open.RespondedAt = &respondedAt
	s.open.RejectionReason = reason
	s.resolved = append(s.resolved, response)
	s.reason = reason
	s.open = nil
	return 1, nil
}

func (s *stubLedger) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Assignment, error) {
	return s.history, nil
}

type stubStatusLog struct {
	entries []models.StatusLogEntry
}

func (s *stubStatusLog) WithTx(tx *gorm.DB) statuslog.Repository {
	return s
}

func (s *stubStatusLog) Append(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus, actorID uuid.UUID, notes *string) error {
	s.entries = append(s.entries, models.StatusLogEntry{
		RequestID:   requestID,
		Status:      status,
		ActorUserID: actorID,
		Notes:       notes,
	})
	return nil
}

func (s *stubStatusLog) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.StatusLogEntry, error) {
	return s.entries, nil
}

type stubSettings struct {
	timeout    int
	recipients []string
}

func (s *stubSettings) SLATimeoutMinutes(ctx context.Context, partnerID uuid.UUID) int {
	return s.timeout
}

func (s *stubSettings) SLARecipients(ctx context.Context) []string {
	return s.recipients
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type testHarness struct {
	svc       *service
	repo      *stubRequestsRepo
	ledger    *stubLedger
	statusLog *stubStatusLog
	outbox    *stubOutboxPublisher
}

func newTestService(t *testing.T, timeoutMinutes int) *testHarness {
	t.Helper()

	repo := &stubRequestsRepo{}
	ledgerStub := &stubLedger{}
	logStub := &stubStatusLog{}
	outboxStub := &stubOutboxPublisher{}
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Ledger:    ledgerStub,
		StatusLog: logStub,
		Settings:  &stubSettings{timeout: timeoutMinutes},
		TxRunner:  stubTxRunner{},
		Outbox:    outboxStub,
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return &testHarness{
		svc:       svc.(*service),
		repo:      repo,
		ledger:    ledgerStub,
		statusLog: logStub,
		outbox:    outboxStub,
	}
}

func assignedRequest(h *testHarness, partnerID, branchID uuid.UUID, deadline time.Time) *models.Request {
	assignedAt := deadline.Add(-30 * time.Minute)
	request := &models.Request{
		ID:            uuid.New(),
		RequestNumber: 1042,
		CustomerID:    uuid.New(),
		ServiceName:   "laundry",
		CategoryName:  "dry_clean",
		PickupOption:  "partner_pickup",
		Status:        enums.RequestStatusAssigned,
		PartnerID:     &partnerID,
		BranchID:      &branchID,
		AssignedAt:    &assignedAt,
		SLADeadline:   &deadline,
	}
	h.repo.request = request
	h.ledger.open = &models.Assignment{
		ID:         uuid.New(),
		RequestID:  request.ID,
		PartnerID:  partnerID,
		BranchID:   branchID,
		AssignedAt: assignedAt,
		Response:   enums.AssignmentResponsePending,
	}
	return request
}

func TestSubmitCreatesRequestWithAuditTrail(t *testing.T) {
	h := newTestService(t, 30)
	customerID := uuid.New()

	request, err := h.svc.Submit(context.Background(), SubmitInput{
		CustomerID:   customerID,
		ServiceName:  "laundry",
		CategoryName: "dry_clean",
		PickupOption: "customer_dropoff",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if request.Status != enums.RequestStatusSubmitted {
		t.Fatalf("unexpected status %s", request.Status)
	}
	if request.RequestNumber == 0 {
		t.Fatal("expected request number allocated")
	}
	if len(h.statusLog.entries) != 1 || h.statusLog.entries[0].Status != enums.RequestStatusSubmitted {
		t.Fatalf("unexpected status log %+v", h.statusLog.entries)
	}
	if h.statusLog.entries[0].ActorUserID != customerID {
		t.Fatal("submit entry should be attributed to the customer")
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.EventRequestSubmitted {
		t.Fatalf("unexpected outbox events %+v", h.outbox.events)
	}
}

func TestAssignSetsDeadlineAndOpensEpisode(t *testing.T) {
	h := newTestService(t, 45)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h.svc.now = func() time.Time { return now }

	h.repo.request = &models.Request{
		ID:            uuid.New(),
		RequestNumber: 1001,
		CustomerID:    uuid.New(),
		Status:        enums.RequestStatusSubmitted,
	}
	partnerID := uuid.New()
	branchID := uuid.New()
	assignerID := uuid.New()

	request, err := h.svc.Assign(context.Background(), AssignInput{
		RequestID:  h.repo.request.ID,
		PartnerID:  partnerID,
		BranchID:   branchID,
		AssignerID: assignerID,
		ActorRole:  string(enums.RoleAdmin),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if request.Status != enums.RequestStatusAssigned {
		t.Fatalf("unexpected status %s", request.Status)
	}
	wantDeadline := now.Add(45 * time.Minute)
	if request.SLADeadline == nil || !request.SLADeadline.Equal(wantDeadline) {
		t.Fatalf("unexpected deadline %v", request.SLADeadline)
	}
	if h.ledger.open == nil || h.ledger.open.PartnerID != partnerID {
		t.Fatalf("expected open ledger entry for partner")
	}
	if h.ledger.open.Response != enums.AssignmentResponsePending {
		t.Fatalf("unexpected episode response %s", h.ledger.open.Response)
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.EventRequestAssigned {
		t.Fatalf("unexpected outbox events %+v", h.outbox.events)
	}
}

func TestAssignRejectedRequestIsReassignable(t *testing.T) {
	h := newTestService(t, 30)
	h.repo.request = &models.Request{
		ID:            uuid.New(),
		RequestNumber: 1002,
		CustomerID:    uuid.New(),
		Status:        enums.RequestStatusRejected,
	}

	_, err := h.svc.Assign(context.Background(), AssignInput{
		RequestID:  h.repo.request.ID,
		PartnerID:  uuid.New(),
		BranchID:   uuid.New(),
		AssignerID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("expected rejected request to be assignable, got %v", err)
	}
	if h.repo.request.Status != enums.RequestStatusAssigned {
		t.Fatalf("unexpected status %s", h.repo.request.Status)
	}
}

func TestAssignConflictWhenAlreadyAssigned(t *testing.T) {
	h := newTestService(t, 30)
	assignedRequest(h, uuid.New(), uuid.New(), time.Now().Add(30*time.Minute))

	_, err := h.svc.Assign(context.Background(), AssignInput{
		RequestID:  h.repo.request.ID,
		PartnerID:  uuid.New(),
		BranchID:   uuid.New(),
		AssignerID: uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict got %v", err)
	}
	if len(h.outbox.events) != 0 {
		t.Fatal("unexpected outbox event")
	}
}

func TestAcceptConfirmsAndKeepsPartnerFields(t *testing.T) {
	h := newTestService(t, 30)
	partnerID := uuid.New()
	branchID := uuid.New()
	assignedRequest(h, partnerID, branchID, time.Now().UTC().Add(30*time.Minute))

	err := h.svc.Accept(context.Background(), AcceptInput{
		RequestID:   h.repo.request.ID,
		PartnerID:   partnerID,
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	request := h.repo.request
	if request.Status != enums.RequestStatusConfirmed {
		t.Fatalf("unexpected status %s", request.Status)
	}
	if request.SLADeadline != nil {
		t.Fatal("deadline should be cleared on accept")
	}
	if request.PartnerID == nil || *request.PartnerID != partnerID {
		t.Fatal("partner must stay on a confirmed request")
	}
	if request.BranchID == nil || request.AssignedAt == nil {
		t.Fatal("branch and assigned_at must stay on a confirmed request")
	}
	if len(h.ledger.resolved) != 1 || h.ledger.resolved[0] != enums.AssignmentResponseConfirmed {
		t.Fatalf("unexpected ledger resolutions %+v", h.ledger.resolved)
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.EventRequestAccepted {
		t.Fatalf("unexpected outbox events %+v", h.outbox.events)
	}
}

func TestAcceptWrongPartnerConflicts(t *testing.T) {
	h := newTestService(t, 30)
	assignedRequest(h, uuid.New(), uuid.New(), time.Now().UTC().Add(30*time.Minute))

	err := h.svc.Accept(context.Background(), AcceptInput{
		RequestID:   h.repo.request.ID,
		PartnerID:   uuid.New(),
		ActorUserID: uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict got %v", err)
	}
	if h.repo.request.Status != enums.RequestStatusAssigned {
		t.Fatal("request must be untouched on conflict")
	}
	if len(h.ledger.resolved) != 0 {
		t.Fatal("episode must stay open on conflict")
	}
}

func TestRejectClearsAssignmentFields(t *testing.T) {
	h := newTestService(t, 30)
	partnerID := uuid.New()
	assignedRequest(h, partnerID, uuid.New(), time.Now().UTC().Add(30*time.Minute))

	err := h.svc.Reject(context.Background(), RejectInput{
		RequestID:   h.repo.request.ID,
		PartnerID:   partnerID,
		ActorUserID: uuid.New(),
		Reason:      "no capacity this week",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	request := h.repo.request
	if request.Status != enums.RequestStatusRejected {
		t.Fatalf("unexpected status %s", request.Status)
	}
	if request.PartnerID != nil || request.BranchID != nil || request.AssignedAt != nil || request.SLADeadline != nil {
		t.Fatalf("assignment fields must be cleared, got %+v", request)
	}
	if len(h.ledger.resolved) != 1 || h.ledger.resolved[0] != enums.AssignmentResponseRejected {
		t.Fatalf("unexpected ledger resolutions %+v", h.ledger.resolved)
	}
	if h.ledger.reason == nil || *h.ledger.reason != "no capacity this week" {
		t.Fatalf("rejection reason not recorded: %v", h.ledger.reason)
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.EventRequestRejected {
		t.Fatalf("unexpected outbox events %+v", h.outbox.events)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	h := newTestService(t, 30)
	partnerID := uuid.New()
	assignedRequest(h, partnerID, uuid.New(), time.Now().UTC().Add(30*time.Minute))

	err := h.svc.Reject(context.Background(), RejectInput{
		RequestID:   h.repo.request.ID,
		PartnerID:   partnerID,
		ActorUserID: uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestTimeoutExpireRevertsAssignment(t *testing.T) {
	h := newTestService(t, 30)
	deadline := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assignedRequest(h, uuid.New(), uuid.New(), deadline)

	expired, err := h.svc.TimeoutExpire(context.Background(), ExpireInput{
		RequestID:        h.repo.request.ID,
		ObservedDeadline: deadline,
		TimeoutMinutes:   30,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !expired {
		t.Fatal("expected expiry to apply")
	}
	request := h.repo.request
	if request.Status != enums.RequestStatusUnassigned {
		t.Fatalf("unexpected status %s", request.Status)
	}
	if request.PartnerID != nil || request.BranchID != nil || request.AssignedAt != nil || request.SLADeadline != nil {
		t.Fatalf("assignment fields must be cleared, got %+v", request)
	}
	if len(h.ledger.resolved) != 1 || h.ledger.resolved[0] != enums.AssignmentResponseTimeout {
		t.Fatalf("unexpected ledger resolutions %+v", h.ledger.resolved)
	}
	if len(h.statusLog.entries) != 1 || h.statusLog.entries[0].ActorUserID != models.SystemActorID {
		t.Fatalf("timeout entry must be attributed to the system actor, got %+v", h.statusLog.entries)
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.EventRequestSLAExpired {
		t.Fatalf("unexpected outbox events %+v", h.outbox.events)
	}
}

func TestTimeoutExpireNoOpAfterPartnerAccepted(t *testing.T) {
	h := newTestService(t, 30)
	partnerID := uuid.New()
	deadline := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assignedRequest(h, partnerID, uuid.New(), deadline)

	// Partner wins the race before the sweep reaches this candidate.
	err := h.svc.Accept(context.Background(), AcceptInput{
		RequestID:   h.repo.request.ID,
		PartnerID:   partnerID,
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	h.outbox.events = nil
	h.statusLog.entries = nil

	expired, err := h.svc.TimeoutExpire(context.Background(), ExpireInput{
		RequestID:        h.repo.request.ID,
		ObservedDeadline: deadline,
		TimeoutMinutes:   30,
	})
	if err != nil {
		t.Fatalf("expected silent no-op got %v", err)
	}
	if expired {
		t.Fatal("expiry must not apply after accept")
	}
	if h.repo.request.Status != enums.RequestStatusConfirmed {
		t.Fatalf("accept outcome must stand, got %s", h.repo.request.Status)
	}
	if len(h.statusLog.entries) != 0 {
		t.Fatalf("no-op must not log, got %+v", h.statusLog.entries)
	}
	if len(h.outbox.events) != 0 {
		t.Fatalf("no-op must not emit, got %+v", h.outbox.events)
	}
}

func TestTimeoutExpireNoOpWhenDeadlineMoved(t *testing.T) {
	h := newTestService(t, 30)
	deadline := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assignedRequest(h, uuid.New(), uuid.New(), deadline.Add(time.Hour))

	expired, err := h.svc.TimeoutExpire(context.Background(), ExpireInput{
		RequestID:        h.repo.request.ID,
		ObservedDeadline: deadline,
		TimeoutMinutes:   30,
	})
	if err != nil {
		t.Fatalf("expected silent no-op got %v", err)
	}
	if expired {
		t.Fatal("expiry must not apply against a moved deadline")
	}
	if h.repo.request.Status != enums.RequestStatusAssigned {
		t.Fatalf("unexpected status %s", h.repo.request.Status)
	}
}

func TestAdvanceWalksLifecycle(t *testing.T) {
	h := newTestService(t, 30)
	partnerID := uuid.New()
	assignedRequest(h, partnerID, uuid.New(), time.Now().UTC().Add(30*time.Minute))
	if err := h.svc.Accept(context.Background(), AcceptInput{
		RequestID:   h.repo.request.ID,
		PartnerID:   partnerID,
		ActorUserID: uuid.New(),
	}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	actorID := uuid.New()

	steps := []enums.RequestStatus{
		enums.RequestStatusInProgress,
		enums.RequestStatusCompleted,
		enums.RequestStatusClosed,
	}
	for _, next := range steps {
		err := h.svc.Advance(context.Background(), AdvanceInput{
			RequestID: h.repo.request.ID,
			NewStatus: next,
			ActorID:   actorID,
		})
		if err != nil {
			t.Fatalf("advance to %s failed: %v", next, err)
		}
		if h.repo.request.Status != next {
			t.Fatalf("expected %s got %s", next, h.repo.request.Status)
		}
	}
	if h.repo.request.InProgressAt == nil || h.repo.request.CompletedAt == nil || h.repo.request.ClosedAt == nil {
		t.Fatalf("phase timestamps missing: %+v", h.repo.request)
	}
	if h.repo.request.ClosedByUserID == nil || *h.repo.request.ClosedByUserID != actorID {
		t.Fatal("closed_by_user_id must record the closing actor")
	}
}

func TestAdvanceCloseStoresRatingAndFeedback(t *testing.T) {
	h := newTestService(t, 30)
	partnerID := uuid.New()
	assignedRequest(h, partnerID, uuid.New(), time.Now().UTC().Add(30*time.Minute))
	if err := h.svc.Accept(context.Background(), AcceptInput{
		RequestID:   h.repo.request.ID,
		PartnerID:   partnerID,
		ActorUserID: uuid.New(),
	}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	for _, next := range []enums.RequestStatus{enums.RequestStatusInProgress, enums.RequestStatusCompleted} {
		if err := h.svc.Advance(context.Background(), AdvanceInput{
			RequestID: h.repo.request.ID,
			NewStatus: next,
			ActorID:   uuid.New(),
		}); err != nil {
			t.Fatalf("advance to %s failed: %v", next, err)
		}
	}

	rating := 4
	feedback := "picked up on time"
	err := h.svc.Advance(context.Background(), AdvanceInput{
		RequestID: h.repo.request.ID,
		NewStatus: enums.RequestStatusClosed,
		ActorID:   uuid.New(),
		Rating:    &rating,
		Feedback:  &feedback,
	})
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if h.repo.request.Rating == nil || *h.repo.request.Rating != 4 {
		t.Fatalf("rating not stored: %+v", h.repo.request.Rating)
	}
	if h.repo.request.Feedback == nil || *h.repo.request.Feedback != feedback {
		t.Fatal("feedback not stored")
	}
}

func TestAdvanceRejectsRatingBeforeClose(t *testing.T) {
	h := newTestService(t, 30)
	partnerID := uuid.New()
	assignedRequest(h, partnerID, uuid.New(), time.Now().UTC().Add(30*time.Minute))
	if err := h.svc.Accept(context.Background(), AcceptInput{
		RequestID:   h.repo.request.ID,
		PartnerID:   partnerID,
		ActorUserID: uuid.New(),
	}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	rating := 5
	err := h.svc.Advance(context.Background(), AdvanceInput{
		RequestID: h.repo.request.ID,
		NewStatus: enums.RequestStatusInProgress,
		ActorID:   uuid.New(),
		Rating:    &rating,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestAdvanceRejectsSkippedPhase(t *testing.T) {
	h := newTestService(t, 30)
	partnerID := uuid.New()
	assignedRequest(h, partnerID, uuid.New(), time.Now().UTC().Add(30*time.Minute))
	if err := h.svc.Accept(context.Background(), AcceptInput{
		RequestID:   h.repo.request.ID,
		PartnerID:   partnerID,
		ActorUserID: uuid.New(),
	}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	err := h.svc.Advance(context.Background(), AdvanceInput{
		RequestID: h.repo.request.ID,
		NewStatus: enums.RequestStatusCompleted,
		ActorID:   uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict got %v", err)
	}
	if h.repo.request.Status != enums.RequestStatusConfirmed {
		t.Fatalf("unexpected status %s", h.repo.request.Status)
	}
}

func TestAdvanceRejectsNonAdvanceTarget(t *testing.T) {
	h := newTestService(t, 30)
	assignedRequest(h, uuid.New(), uuid.New(), time.Now().UTC().Add(30*time.Minute))

	err := h.svc.Advance(context.Background(), AdvanceInput{
		RequestID: h.repo.request.ID,
		NewStatus: enums.RequestStatusAssigned,
		ActorID:   uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}
