package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/internal/repository"
)

type doctorIDsStub []string

func (s doctorIDsStub) ListIDs(ctx context.Context) ([]string, error) { return s, nil }

type repairResult struct {
	removed, restored int64
	err               error
}

type slotRepairerStub struct {
	mu      sync.Mutex
	results map[string]repairResult
	calls   map[string]int
}

func (s *slotRepairerStub) ReconcileDoctorSlots(ctx context.Context, doctorID string, at time.Time) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[doctorID]++
	r := s.results[doctorID]
	return r.removed, r.restored, r.err
}

type repairMetrics struct {
	mu      sync.Mutex
	repairs map[string]int64
	queries int
}

func (m *repairMetrics) SlotRepairs(kind string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repairs[kind] += n
}

func (m *repairMetrics) ObserveDBQuery(label string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
}

func newLock(t *testing.T) *repository.LockRepository {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repository.NewLockRepository(client, "test:")
}

func TestSlotReconcilerSweepsEveryDoctor(t *testing.T) {
	repairer := &slotRepairerStub{
		results: map[string]repairResult{
			"d1": {removed: 2},
			"d2": {restored: 1},
			"d3": {err: errors.New("deadlock detected")},
		},
		calls: map[string]int{},
	}
	metrics := &repairMetrics{repairs: map[string]int64{}}
	audit := &auditRecorder{}
	reconciler := NewSlotReconciler(doctorIDsStub{"d1", "d2", "d3", "d4"}, repairer, newLock(t), metrics, audit, nil, ReconcilerConfig{
		Workers:    2,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})

	summary, err := reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 4, summary.Doctors)
	assert.EqualValues(t, 2, summary.Removed)
	assert.EqualValues(t, 1, summary.Restored)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, 2, repairer.calls["d3"], "failed doctor is retried once")
	assert.Equal(t, int64(2), metrics.repairs["removed"])
	assert.Equal(t, int64(1), metrics.repairs["restored"])
	assert.Equal(t, 5, metrics.queries)
	assert.ElementsMatch(t, []string{models.AuditActionSlotRepair, models.AuditActionSlotRepair}, audit.actions())
}

func TestSlotReconcilerSkipsWhenLockHeld(t *testing.T) {
	lock := newLock(t)
	_, ok, err := lock.Acquire(context.Background(), reconcileLockName, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	repairer := &slotRepairerStub{results: map[string]repairResult{}, calls: map[string]int{}}
	reconciler := NewSlotReconciler(doctorIDsStub{"d1"}, repairer, lock, nil, nil, nil, ReconcilerConfig{})

	summary, err := reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Empty(t, repairer.calls)
}

func TestSlotReconcilerReleasesLock(t *testing.T) {
	lock := newLock(t)
	repairer := &slotRepairerStub{results: map[string]repairResult{}, calls: map[string]int{}}
	reconciler := NewSlotReconciler(doctorIDsStub{"d1"}, repairer, lock, nil, nil, nil, ReconcilerConfig{})

	_, err := reconciler.RunOnce(context.Background())
	require.NoError(t, err)

	_, ok, err := lock.Acquire(context.Background(), reconcileLockName, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
