// Package registry is the source of truth for managed rollup records. It
// owns the per-rollup lifecycle lock and writes records through the store;
// health snapshots and log tails are updated lock-free, best effort.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/availops/orbitd/pkg/log"
	"github.com/availops/orbitd/pkg/store"
	"github.com/availops/orbitd/pkg/types"
)

// Registry maps rollup IDs to their records. Reads are snapshot copies
// and never contend with an in-flight lifecycle transition.
type Registry struct {
	logger log.Logger
	store  store.Store

	mu      sync.RWMutex
	records map[string]*record

	logCapacity int
}

type record struct {
	rollup *types.Rollup

	// lockCh implements the non-blocking lifecycle try-lock:
	// one slot, full while a transition is in flight.
	lockCh chan struct{}

	logs *LogBuffer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogCapacity sets the per-rollup log tail capacity.
func WithLogCapacity(capacity int) Option {
	return func(r *Registry) {
		r.logCapacity = capacity
	}
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(st store.Store, logger log.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("registry")
	} else {
		logger = logger.WithComponent("registry")
	}

	r := &Registry{
		logger:      logger,
		store:       st,
		records:     make(map[string]*record),
		logCapacity: DefaultLogCapacity,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load hydrates the registry from the store. Rollups persisted in an
// in-progress state were interrupted by a daemon crash; they are demoted
// to Failed with the interruption recorded so a Deploy or Restart can
// recover them.
func (r *Registry) Load(ctx context.Context) error {
	rollups, err := r.store.ListRollups(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rollups: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rollup := range rollups {
		switch rollup.State {
		case types.RollupStateDeploying, types.RollupStateRestarting, types.RollupStateUpdating:
			reason := fmt.Sprintf("daemon restarted during %s", rollup.State)
			r.logger.Warn("Recovering interrupted rollup",
				log.Str("rollup", rollup.ID),
				log.Str("state", string(rollup.State)))

			rollup.State = types.RollupStateFailed
			rollup.Health = types.HealthStatus{Healthy: false, Reason: reason, CheckedAt: time.Now()}
			rollup.UpdatedAt = time.Now()
			if err := r.store.UpdateRollup(ctx, rollup); err != nil {
				return fmt.Errorf("failed to persist recovered rollup %s: %w", rollup.ID, err)
			}
		}

		r.records[rollup.ID] = r.newRecord(rollup)
	}

	r.logger.Info("Registry loaded", log.Int("rollups", len(rollups)))
	return nil
}

func (r *Registry) newRecord(rollup *types.Rollup) *record {
	return &record{
		rollup: rollup,
		lockCh: make(chan struct{}, 1),
		logs:   NewLogBuffer(r.logCapacity),
	}
}

// Create registers and persists a new rollup record.
func (r *Registry) Create(ctx context.Context, rollup *types.Rollup) error {
	if err := rollup.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rollup.ID]; ok {
		return types.NewValidationErrorf("rollup %s already registered", rollup.ID)
	}

	now := time.Now()
	rollup.CreatedAt = now
	rollup.UpdatedAt = now
	if rollup.State == "" {
		rollup.State = types.RollupStateUninitialized
	}

	if err := r.store.CreateRollup(ctx, rollup); err != nil {
		return fmt.Errorf("failed to persist rollup: %w", err)
	}

	r.records[rollup.ID] = r.newRecord(rollup)
	r.logger.Info("Rollup registered", log.Str("rollup", rollup.ID))
	return nil
}

// Get returns a snapshot copy of a rollup record. The copy may be
// superseded by a concurrent transition; it is never blocked by one.
func (r *Registry) Get(id string) (types.Rollup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return types.Rollup{}, types.NewNotFoundError(id)
	}
	return *rec.rollup, nil
}

// List returns snapshot copies of all rollup records.
func (r *Registry) List() []types.Rollup {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Rollup, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec.rollup)
	}
	return out
}

// Exists reports whether a rollup is registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[id]
	return ok
}

// TryLock acquires the rollup's lifecycle lock without blocking. It
// returns InstanceBusy when another transition holds the lock. The
// returned handle is the only way to mutate lifecycle state.
func (r *Registry) TryLock(id string) (*Handle, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()

	if !ok {
		return nil, types.NewNotFoundError(id)
	}

	select {
	case rec.lockCh <- struct{}{}:
		return &Handle{registry: r, rec: rec, id: id}, nil
	default:
		return nil, types.NewInstanceBusyError(id)
	}
}

// AppendLog appends a line to the rollup's log tail. Best effort:
// unknown IDs are dropped.
func (r *Registry) AppendLog(id, line string) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()

	if ok {
		rec.logs.Append(line)
	}
}

// Logs returns up to tail recent log lines for a rollup, oldest first.
func (r *Registry) Logs(id string, tail int) ([]string, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()

	if !ok {
		return nil, types.NewNotFoundError(id)
	}
	return rec.logs.Tail(tail), nil
}

// SetHealth records a health observation without taking the lifecycle
// lock. Stale observations (older than the current snapshot) are
// dropped: last write wins by timestamp.
func (r *Registry) SetHealth(id string, health types.HealthStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return
	}
	if health.CheckedAt.Before(rec.rollup.Health.CheckedAt) {
		return
	}
	rec.rollup.Health = health
}

// Health returns the last observed health snapshot for a rollup.
func (r *Registry) Health(id string) (types.HealthStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return types.HealthStatus{}, types.NewNotFoundError(id)
	}
	return rec.rollup.Health, nil
}

// Handle is an acquired lifecycle lock for one rollup. All state
// mutation goes through Update; Release must always be called.
type Handle struct {
	registry *Registry
	rec      *record
	id       string

	releaseOnce sync.Once
}

// ID returns the locked rollup's ID.
func (h *Handle) ID() string {
	return h.id
}

// Rollup returns a snapshot copy of the locked record.
func (h *Handle) Rollup() types.Rollup {
	h.registry.mu.RLock()
	defer h.registry.mu.RUnlock()
	return *h.rec.rollup
}

// Update applies fn to the record, persists it, and commits it to the
// registry. The store write happens before the in-memory commit so a
// failed persist never leaves the cache ahead of the store.
func (h *Handle) Update(ctx context.Context, fn func(*types.Rollup)) error {
	h.registry.mu.RLock()
	updated := *h.rec.rollup
	h.registry.mu.RUnlock()

	fn(&updated)
	updated.UpdatedAt = time.Now()

	if err := h.registry.store.UpdateRollup(ctx, &updated); err != nil {
		return fmt.Errorf("failed to persist rollup %s: %w", h.id, err)
	}

	h.registry.mu.Lock()
	// A lock-free health write may have landed while the store write was
	// in flight; keep it if it is newer than the snapshot's.
	if h.rec.rollup.Health.CheckedAt.After(updated.Health.CheckedAt) {
		updated.Health = h.rec.rollup.Health
	}
	*h.rec.rollup = updated
	h.registry.mu.Unlock()
	return nil
}

// SetState transitions the record to the given state.
func (h *Handle) SetState(ctx context.Context, state types.RollupState) error {
	return h.Update(ctx, func(rollup *types.Rollup) {
		rollup.State = state
	})
}

// Release releases the lifecycle lock. Safe to call more than once.
func (h *Handle) Release() {
	h.releaseOnce.Do(func() {
		<-h.rec.lockCh
	})
}
