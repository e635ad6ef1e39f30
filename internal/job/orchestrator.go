package job

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Clerks303/Scraping/internal/reconcile"
	"github.com/Clerks303/Scraping/internal/source"
)

var (
	// ErrAlreadyRunning is returned when a source already has a live job.
	ErrAlreadyRunning = eris.New("job: source already has a running job")
	// ErrNotFound is returned when a source has never been started.
	ErrNotFound = eris.New("job: no job for source")
)

// Orchestrator starts acquisition runs, enforces the one-live-job-per-source
// rule, and tracks the latest run of each source.
type Orchestrator struct {
	registry   *source.Registry
	reconciler *reconcile.Reconciler

	mu   sync.Mutex
	jobs map[string]*job
	seq  int

	wg sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator over the given source registry.
func NewOrchestrator(reg *source.Registry, rec *reconcile.Reconciler) *Orchestrator {
	return &Orchestrator{
		registry:   reg,
		reconciler: rec,
		jobs:       make(map[string]*job),
	}
}

// StartJob launches an acquisition run for the named source. It fails with
// ErrAlreadyRunning if the source's latest job has not reached a terminal
// state, and with source.ErrUnknownSource for an unregistered name.
func (o *Orchestrator) StartJob(ctx context.Context, name string, params source.Params) (Snapshot, error) {
	src, err := o.registry.Get(name)
	if err != nil {
		return Snapshot{}, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	o.mu.Lock()
	if prev, ok := o.jobs[name]; ok && !prev.state.Terminal() {
		o.mu.Unlock()
		cancel()
		return Snapshot{}, ErrAlreadyRunning
	}
	o.seq++
	j := &job{
		source:    name,
		seq:       o.seq,
		state:     StatePending,
		startedAt: time.Now().UTC(),
		cancel:    cancel,
	}
	o.jobs[name] = j
	snap := j.snapshot()
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(runCtx, src, j, params)

	return snap, nil
}

// run executes the source and drives the job through its lifecycle. A panic
// in the source is an acquisition failure, never a process crash.
func (o *Orchestrator) run(ctx context.Context, src source.Source, j *job, params source.Params) {
	defer o.wg.Done()
	defer j.cancel()

	log := zap.L().With(
		zap.String("source", j.source),
		zap.Int("seq", j.seq),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("job: source panicked", zap.Any("panic", r), zap.Stack("stack"))
			o.finish(j, eris.Errorf("source panicked: %v", r))
		}
	}()

	o.mu.Lock()
	j.state = StateRunning
	j.message = "starting"
	o.mu.Unlock()

	log.Info("job: started")

	err := src.Run(ctx, params, func(rep source.Report) {
		o.apply(ctx, src, j, rep)
	})
	if ctx.Err() != nil && err == nil {
		err = ctx.Err()
	}
	o.finish(j, err)

	if err != nil {
		log.Warn("job: failed", zap.Error(err))
	} else {
		log.Info("job: completed")
	}
}

// apply folds one report event into the job: records are reconciled into
// the dataset, progress advances monotonically and stays below 100 until
// the terminal transition.
func (o *Orchestrator) apply(ctx context.Context, src source.Source, j *job, rep source.Report) {
	var batch *reconcile.BatchResult
	if len(rep.Records) > 0 {
		var err error
		batch, err = o.reconciler.ReconcileBatch(ctx, rep.Records, reconcile.InsertOrUpdate, src.Name())
		if err != nil {
			zap.L().Warn("job: batch reconcile interrupted",
				zap.String("source", j.source),
				zap.Error(err),
			)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if j.state.Terminal() {
		return
	}
	if batch != nil {
		j.newCount += batch.NewCount
		j.updatedCount += batch.UpdatedCount
		j.skippedCount += batch.SkippedCount
		j.errorCount += len(batch.Errors)
	}
	if p := rep.Progress; p > j.progress {
		if p > 99 {
			p = 99
		}
		j.progress = p
	}
	if rep.Message != "" {
		j.message = rep.Message
	}
}

// finish moves the job to its terminal state exactly once.
func (o *Orchestrator) finish(j *job, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if j.state.Terminal() {
		return
	}
	now := time.Now().UTC()
	j.endedAt = &now
	if err != nil {
		j.state = StateFailed
		j.err = eris.Cause(err).Error()
		if eris.Is(err, context.Canceled) {
			j.err = "cancelled by user"
			j.message = "cancelled by user"
		}
		return
	}
	j.state = StateCompleted
	j.progress = 100
	j.message = fmt.Sprintf("done: %d new, %d updated, %d skipped",
		j.newCount, j.updatedCount, j.skippedCount)
}

// Status returns the snapshot of the latest job for the named source.
func (o *Orchestrator) Status(name string) (Snapshot, error) {
	if _, err := o.registry.Get(name); err != nil {
		return Snapshot{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.jobs[name]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return j.snapshot(), nil
}

// StatusAll returns the latest snapshot of every source that has run,
// ordered by source name.
func (o *Orchestrator) StatusAll() []Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Snapshot, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, j.snapshot())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Source < out[k].Source })
	return out
}

// StopJob requests cancellation of the running job for the named source.
// The job transitions to Failed once the source observes the cancellation.
// Stopping a source that cannot be interrupted, or that has no live job,
// is an acknowledged no-op that leaves the job untouched; the only failure
// is an unregistered source name.
func (o *Orchestrator) StopJob(name string) error {
	src, err := o.registry.Get(name)
	if err != nil {
		return err
	}
	if !src.SupportsCancel() {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.jobs[name]
	if !ok || j.state.Terminal() {
		return nil
	}
	j.message = "cancellation requested"
	j.cancel()
	return nil
}

// Wait blocks until every launched job goroutine has returned. Used by
// graceful shutdown and tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
