// Package scheduler runs the fixed background maintenance tasks that keep
// the memory hierarchy healthy: importance decay, layer rebalancing, and
// consolidation of related records. Intervals are expressed as durations
// but driven through a cron engine (via the "@every" spec form) so a
// future move to wall-clock schedules (e.g. decay nightly at 03:00) is a
// spec string change, not a scheduler rewrite.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/Parswanadh/memory-mcp-server/internal/observability"
)

// Maintainer is the subset of the memory manager the scheduler drives.
// It is satisfied by *memory.Manager; defined here as an interface so the
// scheduler can be tested without a live vector store.
type Maintainer interface {
	ApplyDecay(ctx context.Context) (int, error)
	RebalanceLayers(ctx context.Context) (promoted int, demoted int, err error)
	ConsolidateDue(ctx context.Context) (merged int, err error)
}

// Options configures the intervals the scheduler runs its three tasks at.
// Zero values fall back to the documented defaults.
type Options struct {
	DecayInterval         time.Duration
	RebalanceInterval     time.Duration
	ConsolidationInterval time.Duration
}

const (
	defaultDecayInterval         = 24 * time.Hour
	defaultRebalanceInterval     = time.Hour
	defaultConsolidationInterval = 6 * time.Hour
)

func (o Options) withDefaults() Options {
	if o.DecayInterval <= 0 {
		o.DecayInterval = defaultDecayInterval
	}
	if o.RebalanceInterval <= 0 {
		o.RebalanceInterval = defaultRebalanceInterval
	}
	if o.ConsolidationInterval <= 0 {
		o.ConsolidationInterval = defaultConsolidationInterval
	}
	return o
}

// Scheduler owns the cron engine driving maintenance of the memory store.
type Scheduler struct {
	maintainer Maintainer
	opts       Options

	mu      sync.Mutex
	cron    *cron.Cron
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Scheduler bound to the given maintainer. It does not start
// running tasks until Start is called.
func New(maintainer Maintainer, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		maintainer: maintainer,
		opts:       opts.withDefaults(),
		cron:       cron.New(cron.WithSeconds()),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// everySpec renders d as a cron "@every" spec string, the cron package's
// fixed-interval shorthand.
func everySpec(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

// Start schedules all three maintenance tasks and returns immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.scheduleLocked(s.opts.DecayInterval, s.runDecay)
	s.scheduleLocked(s.opts.RebalanceInterval, s.runRebalance)
	s.scheduleLocked(s.opts.ConsolidationInterval, s.runConsolidation)
	s.cron.Start()

	log.Info().
		Dur("decayInterval", s.opts.DecayInterval).
		Dur("rebalanceInterval", s.opts.RebalanceInterval).
		Dur("consolidationInterval", s.opts.ConsolidationInterval).
		Msg("memory scheduler started")
}

// scheduleLocked registers task on the cron engine at the given fixed
// interval. Caller must hold s.mu.
func (s *Scheduler) scheduleLocked(interval time.Duration, task func()) {
	_, err := s.cron.AddFunc(everySpec(interval), func() {
		s.wg.Add(1)
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			return
		default:
		}

		task()
	})
	if err != nil {
		log.Error().Err(err).Str("spec", everySpec(interval)).Msg("failed to schedule maintenance task")
	}
}

// Stop cancels the cron engine. Any task already in flight is allowed to
// finish before Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	stopCtx := s.cron.Stop()
	s.cancel()
	s.mu.Unlock()

	<-stopCtx.Done()
	s.wg.Wait()
	log.Info().Msg("memory scheduler stopped")
}

func (s *Scheduler) runDecay() {
	start := time.Now()
	n, err := s.maintainer.ApplyDecay(s.ctx)
	observability.RecordDecayRun(time.Since(start))
	if err != nil {
		observability.RecordSchedulerTaskError("decay")
		log.Error().Err(err).Msg("decay task failed")
		return
	}
	log.Debug().Int("affected", n).Msg("decay task completed")
}

func (s *Scheduler) runRebalance() {
	promoted, demoted, err := s.maintainer.RebalanceLayers(s.ctx)
	if err != nil {
		observability.RecordRebalanceRun(false, promoted, demoted)
		observability.RecordSchedulerTaskError("rebalance")
		log.Error().Err(err).Msg("rebalance task failed")
		return
	}
	observability.RecordRebalanceRun(true, promoted, demoted)
	log.Debug().Int("promoted", promoted).Int("demoted", demoted).Msg("rebalance task completed")
}

func (s *Scheduler) runConsolidation() {
	merged, err := s.maintainer.ConsolidateDue(s.ctx)
	if err != nil {
		observability.RecordSchedulerTaskError("consolidation")
		log.Error().Err(err).Msg("consolidation task failed")
		return
	}
	observability.RecordConsolidationRun(merged)
	log.Debug().Int("merged", merged).Msg("consolidation task completed")
}
