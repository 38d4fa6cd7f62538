package reconciler

import (
	"errors"
	"sync"
	"time"

	"live-bidding/utils"

	"github.com/go-co-op/gocron/v2"
)

// DefaultInterval is used when no interval is configured
const DefaultInterval = 30 * time.Second

// DirtyStore re-schedules durable writes that exhausted their retries
type DirtyStore interface {
	RepersistDirty() []string
}

// WindowEvicter drops expired auction window cache entries
type WindowEvicter interface {
	EvictExpired() int
}

// Reconciler periodically pushes cached states that never reached the store
// of record back into the durable write path.
type Reconciler struct {
	store     DirtyStore
	windows   WindowEvicter
	interval  time.Duration
	scheduler gocron.Scheduler

	mu   sync.Mutex
	runs int
}

// New creates a Reconciler. windows may be nil.
func New(store DirtyStore, windows WindowEvicter, interval time.Duration) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("reconciler: store cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Reconciler{
		store:     store,
		windows:   windows,
		interval:  interval,
		scheduler: scheduler,
	}, nil
}

// Start schedules the reconcile job
func (r *Reconciler) Start() error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(
			func() {
				r.RunOnce()
			},
		),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	r.scheduler.Start()
	utils.Info("reconciler: started", map[string]any{"interval": r.interval.String()})
	return nil
}

// Stop shuts the scheduler down
func (r *Reconciler) Stop() error {
	return r.scheduler.Shutdown()
}

// RunOnce performs one reconcile pass and returns the re-persisted items and
// the number of evicted windows.
func (r *Reconciler) RunOnce() ([]string, int) {
	items := r.store.RepersistDirty()
	if len(items) > 0 {
		utils.Warn("reconciler: re-persisting states missing from store of record", map[string]any{
			"alert": "durability",
			"items": items,
		})
	}

	evicted := 0
	if r.windows != nil {
		evicted = r.windows.EvictExpired()
	}

	r.mu.Lock()
	r.runs++
	r.mu.Unlock()

	utils.Debug("reconciler: pass complete", map[string]any{"repersisted": len(items), "evicted_windows": evicted})
	return items, evicted
}

// Runs returns how many passes have completed
func (r *Reconciler) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}
