package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-api/internal/dto"
	"github.com/noah-isme/clinic-api/internal/models"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
	"github.com/noah-isme/clinic-api/pkg/jobs"
)

const (
	reconcileLockName = "slot-reconcile"
	reconcileJobType  = "slot_registry_reconcile"
)

type doctorIDLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

type slotRepairer interface {
	ReconcileDoctorSlots(ctx context.Context, doctorID string, at time.Time) (removed, restored int64, err error)
}

// SweepLock keeps concurrent replicas from sweeping at the same time.
type SweepLock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, name, token string) error
}

type reconcileMetrics interface {
	SlotRepairs(kind string, n int64)
	ObserveDBQuery(label string, duration time.Duration)
}

// ReconcilerConfig tunes the sweep.
type ReconcilerConfig struct {
	Workers    int
	LockTTL    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// SlotReconciler repairs drift between appointments and the doctor slot
// registry.
type SlotReconciler struct {
	doctors doctorIDLister
	slots   slotRepairer
	lock    SweepLock
	metrics reconcileMetrics
	audit   auditLogger
	logger  *zap.Logger
	config  ReconcilerConfig
	now     func() time.Time
}

// NewSlotReconciler constructs a reconciler. lock may be nil when only one
// instance runs the sweep.
func NewSlotReconciler(doctors doctorIDLister, slots slotRepairer, lock SweepLock, metrics reconcileMetrics, audit auditLogger, logger *zap.Logger, cfg ReconcilerConfig) *SlotReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 250 * time.Millisecond
	}
	return &SlotReconciler{doctors: doctors, slots: slots, lock: lock, metrics: metrics, audit: audit, logger: logger, config: cfg, now: time.Now}
}

// RunOnce sweeps every doctor. It reports Skipped when another instance
// holds the sweep lock.
func (r *SlotReconciler) RunOnce(ctx context.Context) (*dto.ReconcileSummary, error) {
	summary := &dto.ReconcileSummary{}
	if r.lock != nil {
		token, ok, err := r.lock.Acquire(ctx, reconcileLockName, r.config.LockTTL)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to acquire reconcile lock")
		}
		if !ok {
			summary.Skipped = true
			r.logger.Info("slot reconciliation skipped, lock held elsewhere")
			return summary, nil
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.lock.Release(releaseCtx, reconcileLockName, token); err != nil {
				r.logger.Warn("failed to release reconcile lock", zap.Error(err))
			}
		}()
	}

	ids, err := r.doctors.ListIDs(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list doctors")
	}
	summary.Doctors = len(ids)
	if len(ids) == 0 {
		return summary, nil
	}

	var removed, restored, failed atomic.Int64
	handler := func(ctx context.Context, job jobs.Job) error {
		doctorID, _ := job.Payload.(string)
		started := time.Now()
		rm, rs, err := r.slots.ReconcileDoctorSlots(ctx, doctorID, r.now().UTC())
		if r.metrics != nil {
			r.metrics.ObserveDBQuery("reconcile_doctor_slots", time.Since(started))
		}
		if err != nil {
			return fmt.Errorf("reconcile doctor %s: %w", doctorID, err)
		}
		removed.Add(rm)
		restored.Add(rs)
		if rm+rs > 0 {
			r.recordRepair(ctx, doctorID, rm, rs)
		}
		return nil
	}

	queue := jobs.NewQueue(reconcileJobType, handler, jobs.QueueConfig{
		Workers:    r.config.Workers,
		BufferSize: len(ids),
		MaxRetries: r.config.MaxRetries,
		RetryDelay: r.config.RetryDelay,
		Logger:     r.logger,
		OnDrop: func(job jobs.Job, err error) {
			failed.Add(1)
		},
	})
	queue.Start(ctx)
	defer queue.Stop()

	for _, id := range ids {
		if err := queue.Enqueue(jobs.Job{ID: id, Type: reconcileJobType, Payload: id}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule reconciliation")
		}
	}
	if err := queue.Wait(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "slot reconciliation interrupted")
	}

	summary.Removed = removed.Load()
	summary.Restored = restored.Load()
	summary.Failed = int(failed.Load())
	r.logger.Info("slot reconciliation finished",
		zap.Int("doctors", summary.Doctors),
		zap.Int64("removed", summary.Removed),
		zap.Int64("restored", summary.Restored),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// Start runs RunOnce every interval until ctx is done.
func (r *SlotReconciler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("slot reconciliation failed", zap.Error(err))
			}
		}
	}
}

func (r *SlotReconciler) recordRepair(ctx context.Context, doctorID string, removed, restored int64) {
	r.logger.Warn("slot registry repaired",
		zap.String("doctor_id", doctorID),
		zap.Int64("removed", removed),
		zap.Int64("restored", restored),
	)
	if r.metrics != nil {
		if removed > 0 {
			r.metrics.SlotRepairs("removed", removed)
		}
		if restored > 0 {
			r.metrics.SlotRepairs("restored", restored)
		}
	}
	recordAudit(ctx, r.audit, r.logger, nil, models.AuditActionSlotRepair, "doctor", doctorID, models.RequestMeta{}, map[string]interface{}{
		"removed":  removed,
		"restored": restored,
	})
}
