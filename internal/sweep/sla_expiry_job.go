package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/partnerly/dispatch-backend/internal/requests"
	"github.com/partnerly/dispatch-backend/pkg/db/models"
	pkgerrors "github.com/partnerly/dispatch-backend/pkg/errors"
	"github.com/partnerly/dispatch-backend/pkg/logger"
	"github.com/partnerly/dispatch-backend/pkg/metrics"
)

type expiredReader interface {
	FindExpiredAssigned(ctx context.Context, now time.Time) ([]models.Request, error)
}

type assignmentExpirer interface {
	TimeoutExpire(ctx context.Context, input requests.ExpireInput) (bool, error)
}

type timeoutSource interface {
	SLATimeoutMinutes(ctx context.Context, partnerID uuid.UUID) int
}

// SLAExpiryJobParams configure the assignment expiry sweep.
type SLAExpiryJobParams struct {
	Logger   *logger.Logger
	Reader   expiredReader
	Requests assignmentExpirer
	Settings timeoutSource
	Metrics  *metrics.SLAMetrics
}

// NewSLAExpiryJob builds the job that reverts assignments whose response
// window elapsed without a partner decision.
func NewSLAExpiryJob(params SLAExpiryJobParams) (*SLAExpiryJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("expired assignment reader required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("request service required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	return &SLAExpiryJob{
		logg:     params.Logger,
		reader:   params.Reader,
		requests: params.Requests,
		settings: params.Settings,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

// SLAExpiryJob is runnable both on the worker's cycle and on demand through
// the internal sweep endpoint.
type SLAExpiryJob struct {
	logg     *logger.Logger
	reader   expiredReader
	requests assignmentExpirer
	settings timeoutSource
	metrics  *metrics.SLAMetrics
	now      func() time.Time
}

func (j *SLAExpiryJob) Name() string { return "sla-expiry" }

func (j *SLAExpiryJob) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep processes each candidate in its own transaction and reports how many
// assignments were reverted. The expiry call re-checks status and deadline,
// so a candidate resolved between the query and its turn is skipped silently;
// one failing candidate never blocks the rest.
func (j *SLAExpiryJob) Sweep(ctx context.Context) (int, error) {
	now := j.now().UTC()
	candidates, err := j.reader.FindExpiredAssigned(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("query expired assignments: %w", err)
	}

	var errs []error
	expired := 0
	for _, candidate := range candidates {
		if candidate.SLADeadline == nil {
			continue
		}
		partnerID := uuid.Nil
		if candidate.PartnerID != nil {
			partnerID = *candidate.PartnerID
		}
		minutes := j.settings.SLATimeoutMinutes(ctx, partnerID)
		reverted, err := j.requests.TimeoutExpire(ctx, requests.ExpireInput{
			RequestID:        candidate.ID,
			ObservedDeadline: *candidate.SLADeadline,
			TimeoutMinutes:   minutes,
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				continue
			}
			errs = append(errs, fmt.Errorf("expire request %s: %w", candidate.ID, err))
			continue
		}
		if reverted {
			expired++
		}
	}

	if j.metrics != nil {
		j.metrics.AddExpired(expired)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "sla expiry sweep complete")
	return expired, multierr.Combine(errs...)
}
