package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/licensestore/internal/paymentgateway"
)

type Reconciler struct {
	service *Service
	pool    *paymentgateway.Pool
	minAge  time.Duration
	batch   int
	logger  *slog.Logger
}

// NewReconciler polls PayOS for payments that have been pending longer than
// minAge, in case their webhook never arrived.
func NewReconciler(service *Service, pool *paymentgateway.Pool, minAge time.Duration, logger *slog.Logger) *Reconciler {
	if minAge <= 0 {
		minAge = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		service: service,
		pool:    pool,
		minAge:  minAge,
		batch:   200,
		logger:  logger,
	}
}

// RunOnce queues one lookup per stale payment and waits for them to finish.
// It returns the number of payments queued.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	stale, err := r.service.PendingBefore(time.Now().Add(-r.minAge), r.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending payments: %w", err)
	}

	queued := 0
	for _, p := range stale {
		paymentID := p.ID
		orderCode := p.OrderCode
		job := paymentgateway.Job{
			Name: fmt.Sprintf("reconcile-%d", orderCode),
			Run: func(jobCtx context.Context) {
				if err := r.service.Reconcile(jobCtx, paymentID); err != nil {
					r.logger.Error("payment reconciliation failed", "error", err, "payment_id", paymentID, "order_code", orderCode)
				}
			},
		}
		if err := r.pool.Submit(job); err != nil {
			r.logger.Warn("reconciliation queue saturated", "queued", queued, "remaining", len(stale)-queued)
			break
		}
		queued++
	}

	r.pool.Drain()
	r.logger.Info("payment reconciliation finished", "stale", len(stale), "queued", queued)
	return queued, nil
}
