package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/internal/ledger"
	"github.com/partnerly/dispatch-backend/internal/settings"
	"github.com/partnerly/dispatch-backend/internal/statuslog"
	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
	pkgerrors "github.com/partnerly/dispatch-backend/pkg/errors"
	"github.com/partnerly/dispatch-backend/pkg/outbox"
	"github.com/partnerly/dispatch-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the authoritative status field of a request. Every mutation
// runs inside one transaction whose status flip is a conditional UPDATE
// guarded on the previously observed state; a zero row count means another
// actor won the race and the caller gets a conflict (or a no-op for the
// sweep path).
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Request, error)
	Assign(ctx context.Context, input AssignInput) (*models.Request, error)
	Accept(ctx context.Context, input AcceptInput) error
	Reject(ctx context.Context, input RejectInput) error
	Advance(ctx context.Context, input AdvanceInput) error
	TimeoutExpire(ctx context.Context, input ExpireInput) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Request, error)
	List(ctx context.Context, params ListParams) ([]models.Request, error)
	History(ctx context.Context, id uuid.UUID) (*History, error)
}

// ServiceParams collect the state machine dependencies.
type ServiceParams struct {
	Repo      Repository
	Ledger    ledger.Repository
	StatusLog statuslog.Repository
	Settings  settings.Service
	TxRunner  txRunner
	Outbox    outboxPublisher
}

type service struct {
	repo      Repository
	ledger    ledger.Repository
	statusLog statuslog.Repository
	settings  settings.Service
	tx        txRunner
	outbox    outboxPublisher
	now       func() time.Time
}

// NewService builds the request state machine service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.StatusLog == nil {
		return nil, fmt.Errorf("status log repository required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      params.Repo,
		ledger:    params.Ledger,
		statusLog: params.StatusLog,
		settings:  params.Settings,
		tx:        params.TxRunner,
		outbox:    params.Outbox,
		now:       time.Now,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Request, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.ServiceName == "" || input.CategoryName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service and category are required")
	}

	request := &models.Request{
		CustomerID:   input.CustomerID,
		ServiceName:  input.ServiceName,
		CategoryName: input.CategoryName,
		PickupOption: input.PickupOption,
		Status:       enums.RequestStatusSubmitted,
		Notes:        input.Notes,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Create(ctx, request)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}
		request = created

		if err := s.statusLog.WithTx(tx).Append(ctx, request.ID, enums.RequestStatusSubmitted, input.CustomerID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRequestSubmitted,
			AggregateType: enums.AggregateRequest,
			AggregateID:   request.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: string(enums.RoleCustomer)},
			Data: payloads.RequestSubmittedEvent{
				RequestID:     request.ID,
				RequestNumber: request.RequestNumber,
				CustomerID:    request.CustomerID,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Request, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.PartnerID == uuid.Nil || input.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner and branch are required")
	}
	if input.AssignerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	// Cached lookup; staleness only shifts the deadline for this new
	// assignment, never the expiry guard on existing ones.
	timeoutMinutes := s.settings.SLATimeoutMinutes(ctx, input.PartnerID)

	var request *models.Request
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if !current.Status.IsAssignable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request cannot be assigned in current state")
		}

		now := s.now().UTC()
		deadline := now.Add(time.Duration(timeoutMinutes) * time.Minute)
		rows, err := repo.UpdateGuarded(ctx, current.ID,
			map[string]any{"status": current.Status},
			map[string]any{
				"status":              enums.RequestStatusAssigned,
				"partner_id":          input.PartnerID,
				"branch_id":           input.BranchID,
				"assigned_by_user_id": input.AssignerID,
				"assigned_at":         now,
				"sla_deadline":        deadline,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request state changed during assignment")
		}

		entry := &models.Assignment{
			RequestID:        current.ID,
			PartnerID:        input.PartnerID,
			BranchID:         input.BranchID,
			AssignedByUserID: input.AssignerID,
			AssignedAt:       now,
		}
		if _, err := s.ledger.WithTx(tx).Open(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open ledger entry")
		}

		if err := s.statusLog.WithTx(tx).Append(ctx, current.ID, enums.RequestStatusAssigned, input.AssignerID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
		}

		current.Status = enums.RequestStatusAssigned
		current.PartnerID = &input.PartnerID
		current.BranchID = &input.BranchID
		current.AssignedByID = &input.AssignerID
		current.AssignedAt = &now
		current.SLADeadline = &deadline
		request = current

		event := outbox.DomainEvent{
			EventType:     enums.EventRequestAssigned,
			AggregateType: enums.AggregateRequest,
			AggregateID:   current.ID,
			Version:       1,
			Actor:         buildActor(input.AssignerID, nil, input.ActorRole),
			Data: payloads.RequestAssignedEvent{
				RequestID:     current.ID,
				RequestNumber: current.RequestNumber,
				PartnerID:     input.PartnerID,
				BranchID:      input.BranchID,
				AssignedBy:    input.AssignerID,
				SLADeadline:   deadline,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) Accept(ctx context.Context, input AcceptInput) error {
	if input.RequestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.PartnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "partner context missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}

		now := s.now().UTC()
		rows, err := repo.UpdateGuarded(ctx, current.ID,
			map[string]any{
				"status":     enums.RequestStatusAssigned,
				"partner_id": input.PartnerID,
			},
			map[string]any{
				"status":       enums.RequestStatusConfirmed,
				"confirmed_at": now,
				"sla_deadline": nil,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is no longer assigned to this partner")
		}

		resolved, err := s.ledger.WithTx(tx).ResolveOpen(ctx, current.ID, &input.PartnerID, enums.AssignmentResponseConfirmed, nil, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve ledger entry")
		}
		if resolved == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no open assignment for partner")
		}

		if err := s.statusLog.WithTx(tx).Append(ctx, current.ID, enums.RequestStatusConfirmed, input.ActorUserID, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRequestAccepted,
			AggregateType: enums.AggregateRequest,
			AggregateID:   current.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, &input.PartnerID, string(enums.RolePartner)),
			Data: payloads.RequestDecisionEvent{
				RequestID:     current.ID,
				RequestNumber: current.RequestNumber,
				PartnerID:     input.PartnerID,
				BranchID:      derefUUID(current.BranchID),
				Response:      enums.AssignmentResponseConfirmed,
				Status:        enums.RequestStatusConfirmed,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) Reject(ctx context.Context, input RejectInput) error {
	if input.RequestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.PartnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "partner context missing")
	}
	if input.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		branchID := derefUUID(current.BranchID)

		now := s.now().UTC()
		rows, err := repo.UpdateGuarded(ctx, current.ID,
			map[string]any{
				"status":     enums.RequestStatusAssigned,
				"partner_id": input.PartnerID,
			},
			map[string]any{
				"status":       enums.RequestStatusRejected,
				"rejected_at":  now,
				"partner_id":   nil,
				"branch_id":    nil,
				"assigned_at":  nil,
				"sla_deadline": nil,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is no longer assigned to this partner")
		}

		reason := input.Reason
		resolved, err := s.ledger.WithTx(tx).ResolveOpen(ctx, current.ID, &input.PartnerID, enums.AssignmentResponseRejected, &reason, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve ledger entry")
		}
		if resolved == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no open assignment for partner")
		}

		if err := s.statusLog.WithTx(tx).Append(ctx, current.ID, enums.RequestStatusRejected, input.ActorUserID, &reason); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRequestRejected,
			AggregateType: enums.AggregateRequest,
			AggregateID:   current.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, &input.PartnerID, string(enums.RolePartner)),
			Data: payloads.RequestDecisionEvent{
				RequestID:     current.ID,
				RequestNumber: current.RequestNumber,
				PartnerID:     input.PartnerID,
				BranchID:      branchID,
				Response:      enums.AssignmentResponseRejected,
				Status:        enums.RequestStatusRejected,
				Reason:        input.Reason,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) error {
	if input.RequestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.NewStatus.IsAdvanceTarget() {
		return pkgerrors.New(pkgerrors.CodeValidation, "status is not an advance target")
	}
	if input.Rating != nil || input.Feedback != nil {
		if input.NewStatus != enums.RequestStatusClosed {
			return pkgerrors.New(pkgerrors.CodeValidation, "rating and feedback are only accepted when closing")
		}
		if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
			return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if !current.Status.CanAdvanceTo(input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed from current status")
		}

		now := s.now().UTC()
		updates := map[string]any{"status": input.NewStatus}
		updates[advanceTimestampColumn(input.NewStatus)] = now
		if input.NewStatus == enums.RequestStatusClosed {
			updates["closed_by_user_id"] = input.ActorID
			if input.Rating != nil {
				updates["rating"] = *input.Rating
			}
			if input.Feedback != nil {
				updates["feedback"] = *input.Feedback
			}
		}
		rows, err := repo.UpdateGuarded(ctx, current.ID,
			map[string]any{"status": current.Status},
			updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request state changed, refresh and retry")
		}

		if err := s.statusLog.WithTx(tx).Append(ctx, current.ID, input.NewStatus, input.ActorID, input.Notes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
		}

		notes := ""
		if input.Notes != nil {
			notes = *input.Notes
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventRequestAdvanced,
			AggregateType: enums.AggregateRequest,
			AggregateID:   current.ID,
			Version:       1,
			Actor:         buildActor(input.ActorID, current.PartnerID, ""),
			Data: payloads.RequestAdvancedEvent{
				RequestID:     current.ID,
				RequestNumber: current.RequestNumber,
				Status:        input.NewStatus,
				ActorID:       input.ActorID,
				Notes:         notes,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

// TimeoutExpire reverts one expired assignment. It reports false when the
// guarded update touched nothing, meaning a concurrent accept/reject (or an
// earlier sweep) already resolved the episode; that outcome is a no-op, not
// an error, and inserts no ledger or log rows.
func (s *service) TimeoutExpire(ctx context.Context, input ExpireInput) (bool, error) {
	if input.RequestID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if input.ObservedDeadline.IsZero() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "observed deadline required")
	}

	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		partnerID := current.PartnerID
		branchID := derefUUID(current.BranchID)

		now := s.now().UTC()
		rows, err := repo.UpdateGuarded(ctx, current.ID,
			map[string]any{
				"status":       enums.RequestStatusAssigned,
				"sla_deadline": input.ObservedDeadline,
			},
			map[string]any{
				"status":       enums.RequestStatusUnassigned,
				"partner_id":   nil,
				"branch_id":    nil,
				"assigned_at":  nil,
				"sla_deadline": nil,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire assignment")
		}
		if rows == 0 {
			return nil
		}

		reason := fmt.Sprintf("no partner response within %d minutes", input.TimeoutMinutes)
		resolved, err := s.ledger.WithTx(tx).ResolveOpen(ctx, current.ID, nil, enums.AssignmentResponseTimeout, &reason, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve ledger entry")
		}
		if resolved == 0 {
			return pkgerrors.New(pkgerrors.CodeDependency, "open ledger entry missing for expired assignment")
		}

		if err := s.statusLog.WithTx(tx).Append(ctx, current.ID, enums.RequestStatusUnassigned, models.SystemActorID, &reason); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventRequestSLAExpired,
			AggregateType: enums.AggregateRequest,
			AggregateID:   current.ID,
			Version:       1,
			OccurredAt:    now,
			Actor:         &outbox.ActorRef{UserID: models.SystemActorID, Role: string(enums.RoleService)},
			Data: payloads.RequestSLAExpiredEvent{
				RequestID:      current.ID,
				RequestNumber:  current.RequestNumber,
				PartnerID:      derefUUID(partnerID),
				BranchID:       branchID,
				SLADeadline:    input.ObservedDeadline,
				TimeoutMinutes: input.TimeoutMinutes,
				ExpiredAt:      now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return request, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Request, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	return rows, nil
}

func (s *service) History(ctx context.Context, id uuid.UUID) (*History, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	log, err := s.statusLog.ListByRequest(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list status log")
	}
	entries, err := s.ledger.ListByRequest(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return &History{
		Request:     request,
		StatusLog:   log,
		Assignments: entries,
	}, nil
}

func advanceTimestampColumn(status enums.RequestStatus) string {
	switch status {
	case enums.RequestStatusInProgress:
		return "in_progress_at"
	case enums.RequestStatusCompleted:
		return "completed_at"
	case enums.RequestStatusClosed:
		return "closed_at"
	default:
		return "updated_at"
	}
}

func buildActor(userID uuid.UUID, partnerID *uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, PartnerID: partnerID, Role: role}
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
