// Package scheduler drives the time-based work of the service: the periodic
// recomputation of lifecycle states and the retry of failed soft syncs.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/market-sales/internal/service"
	"github.com/iliyamo/market-sales/internal/syncer"
)

// kickTimeout bounds one background job started by Kick.
const kickTimeout = 2 * time.Minute

// Recomputer is satisfied by *service.MercadilloService.
type Recomputer interface {
	RecomputeAll(ctx context.Context, trigger string) (service.RecomputeReport, error)
	RecomputeStates(ctx context.Context, userID uint64, trigger string) (service.RecomputeReport, error)
}

// Resyncer is satisfied by *syncer.Syncer.
type Resyncer interface {
	Failed() []uint64
	SyncWithRetry(ctx context.Context, userID uint64, attempts int, backoff time.Duration) syncer.Result
}

type Scheduler struct {
	states   Recomputer
	sync     Resyncer
	interval time.Duration
	attempts int
	backoff  time.Duration
	log      *slog.Logger

	jobs sync.WaitGroup
}

// New builds a Scheduler. sync may be nil when soft sync is disabled.
func New(states Recomputer, sync Resyncer, interval time.Duration, attempts int, backoff time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{states: states, sync: sync, interval: interval, attempts: attempts, backoff: backoff, log: log}
}

// Start runs Run in its own goroutine and returns a channel closed when it
// stops.
func (s *Scheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return done
}

// Run performs one pass immediately and then one per interval until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", "interval", s.interval.String())
	s.tick(ctx, service.TriggerStart)

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-t.C:
			s.tick(ctx, service.TriggerTick)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, trigger string) {
	rep, err := s.states.RecomputeAll(ctx, trigger)
	if err != nil {
		s.log.Error("state recompute failed", "trigger", trigger, "changed", rep.Changed, "error", err)
	}
	if s.sync == nil {
		return
	}
	for _, userID := range s.sync.Failed() {
		if ctx.Err() != nil {
			return
		}
		res := s.sync.SyncWithRetry(ctx, userID, s.attempts, s.backoff)
		if err := res.Err(); err != nil {
			s.log.Warn("sync retry failed", "user_id", userID, "error", err)
		}
	}
}

// Kick recomputes the states of one user and then syncs them, off the
// request path. Login and logout call it.
func (s *Scheduler) Kick(userID uint64, trigger string) {
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		ctx, cancel := context.WithTimeout(context.Background(), kickTimeout)
		defer cancel()

		if _, err := s.states.RecomputeStates(ctx, userID, trigger); err != nil {
			s.log.Error("state recompute failed", "trigger", trigger, "user_id", userID, "error", err)
		}
		if s.sync == nil {
			return
		}
		if err := s.sync.SyncWithRetry(ctx, userID, s.attempts, s.backoff).Err(); err != nil {
			s.log.Warn("sync failed", "trigger", trigger, "user_id", userID, "error", err)
		}
	}()
}

// Wait blocks until every job started by Kick has returned.
func (s *Scheduler) Wait() { s.jobs.Wait() }
