package controllers

import (
	"context"
	"net/http"

	"github.com/partnerly/dispatch-backend/api/responses"
	pkgerrors "github.com/partnerly/dispatch-backend/pkg/errors"
	"github.com/partnerly/dispatch-backend/pkg/logger"
)

type sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// TriggerSLASweep runs one expiry pass on demand. The endpoint exists for
// external schedulers and for operators who do not want to wait out the
// worker's cycle; it is safe to call concurrently with the worker because
// every expiry re-checks its candidate.
func TriggerSLASweep(job sweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if job == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweep job unavailable"))
			return
		}

		expired, err := job.Sweep(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sla sweep"))
			return
		}
		responses.WriteSuccess(w, map[string]int{"expired": expired})
	}
}
