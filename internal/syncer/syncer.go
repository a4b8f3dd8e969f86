// Package syncer implements the soft sync between the local MySQL store and
// the remote Redis document store.
//
// A run pushes every locally changed row and then pulls every remote document
// whose version is newer than the local one. Conflicts are resolved by the
// version counter alone: the higher version wins, on either side. The sync is
// best effort; per-document failures are collected in the Result and the run
// carries on with the next document.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/market-sales/internal/queue"
)

// Outcomes used as metric labels.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// Store is the remote side; *Remote implements it.
type Store interface {
	Put(ctx context.Context, collection string, userID uint64, d Doc) (bool, error)
	Versions(ctx context.Context, collection string, userID uint64) (map[string]int64, error)
	Get(ctx context.Context, collection string, userID uint64, ids []string) ([]Doc, error)
}

type Recorder interface {
	RecordSync(outcome string, d time.Duration)
	RecordSyncDocuments(collection, direction string, n int)
}

type Publisher interface {
	PublishSyncCompleted(ctx context.Context, ev queue.SyncCompletedEvent) error
}

// Result summarises one sync of one user.
type Result struct {
	UserID   uint64
	Pushed   int
	Pulled   int
	Attempts int
	Errors   []error
}

// Err joins the collected errors, nil when the run was clean.
func (r Result) Err() error { return errors.Join(r.Errors...) }

func (r Result) outcome() string {
	switch {
	case len(r.Errors) == 0:
		return OutcomeOK
	case r.Pushed+r.Pulled > 0:
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}

// Options wires a Syncer. Everything except Remote and Sources is optional.
type Options struct {
	Remote     Store
	Sources    []Source
	Metrics    Recorder
	Events     Publisher
	Log        *slog.Logger
	// OnComplete runs after every run that finished without errors.
	OnComplete func(ctx context.Context, userID uint64)
}

type Syncer struct {
	remote     Store
	sources    []Source
	metrics    Recorder
	events     Publisher
	log        *slog.Logger
	onComplete func(ctx context.Context, userID uint64)

	mu     sync.Mutex
	failed map[uint64]struct{}
}

func New(o Options) *Syncer {
	s := &Syncer{
		remote:     o.Remote,
		sources:    o.Sources,
		metrics:    o.Metrics,
		events:     o.Events,
		log:        o.Log,
		onComplete: o.OnComplete,
		failed:     map[uint64]struct{}{},
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Sync runs one push/pull cycle for userID. It never returns early on a
// document error; the caller inspects Result.Errors. When the run was clean
// and pulled documents, the completion hook runs.
func (s *Syncer) Sync(ctx context.Context, userID uint64) Result {
	res := s.run(ctx, userID)
	s.finish(ctx, res)
	return res
}

func (s *Syncer) run(ctx context.Context, userID uint64) Result {
	start := time.Now()
	res := Result{UserID: userID, Attempts: 1}
	for _, src := range s.sources {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, ctx.Err())
			break
		}
		pushed := s.push(ctx, userID, src, &res)
		pulled := s.pull(ctx, userID, src, &res)
		res.Pushed += pushed
		res.Pulled += pulled
		if s.metrics != nil {
			s.metrics.RecordSyncDocuments(src.Collection(), "push", pushed)
			s.metrics.RecordSyncDocuments(src.Collection(), "pull", pulled)
		}
	}
	if s.metrics != nil {
		s.metrics.RecordSync(res.outcome(), time.Since(start))
	}
	s.track(userID, len(res.Errors) == 0)
	return res
}

func (s *Syncer) push(ctx context.Context, userID uint64, src Source, res *Result) int {
	docs, err := src.Pending(ctx, userID)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("%s pending: %w", src.Collection(), err))
		return 0
	}
	n := 0
	for _, d := range docs {
		stored, err := s.remote.Put(ctx, src.Collection(), userID, d)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		if stored {
			n++
		}
		// A rejected push means the remote copy is at least as new; the
		// pull below brings it down when it is strictly newer.
		if err := src.MarkSynced(ctx, userID, d.ID, d.Version); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("%s/%s mark synced: %w", src.Collection(), d.ID, err))
		}
	}
	return n
}

func (s *Syncer) pull(ctx context.Context, userID uint64, src Source, res *Result) int {
	remote, err := s.remote.Versions(ctx, src.Collection(), userID)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return 0
	}
	local, err := src.LocalVersions(ctx, userID)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Errorf("%s local versions: %w", src.Collection(), err))
		return 0
	}
	var ids []string
	for id, v := range remote {
		if lv, ok := local[id]; !ok || v > lv {
			ids = append(ids, id)
		}
	}
	docs, err := s.remote.Get(ctx, src.Collection(), userID, ids)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return 0
	}
	n := 0
	for _, d := range docs {
		if err := src.ApplyRemote(ctx, userID, d); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("%s/%s apply: %w", src.Collection(), d.ID, err))
			continue
		}
		n++
	}
	return n
}

// SyncWithRetry repeats the cycle up to attempts times while it reports errors,
// waiting backoff, 2*backoff, ... between attempts. The completion hook and
// event fire once, after the last attempt.
func (s *Syncer) SyncWithRetry(ctx context.Context, userID uint64, attempts int, backoff time.Duration) Result {
	if attempts < 1 {
		attempts = 1
	}
	var (
		res    Result
		pushed int
		pulled int
	)
	for i := 1; i <= attempts; i++ {
		res = s.run(ctx, userID)
		pushed += res.Pushed
		pulled += res.Pulled
		res.Attempts = i
		if len(res.Errors) == 0 || i == attempts {
			break
		}
		s.log.Warn("sync attempt failed", "user_id", userID, "attempt", i, "error", res.Err())
		if !sleep(ctx, time.Duration(i)*backoff) {
			res.Errors = append(res.Errors, ctx.Err())
			break
		}
	}
	res.Pushed, res.Pulled = pushed, pulled
	s.finish(ctx, res)
	return res
}

func (s *Syncer) finish(ctx context.Context, res Result) {
	if len(res.Errors) > 0 {
		s.log.Warn("sync finished with errors", "user_id", res.UserID, "attempts", res.Attempts,
			"pushed", res.Pushed, "pulled", res.Pulled, "errors", len(res.Errors), "error", res.Err())
	} else {
		s.log.Info("sync finished", "user_id", res.UserID, "pushed", res.Pushed, "pulled", res.Pulled)
	}
	if len(res.Errors) == 0 && s.onComplete != nil {
		s.onComplete(ctx, res.UserID)
	}
	if s.events != nil {
		ev := queue.SyncCompletedEvent{
			UserID:      res.UserID,
			Pushed:      res.Pushed,
			Pulled:      res.Pulled,
			Errors:      len(res.Errors),
			Attempts:    res.Attempts,
			CompletedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.events.PublishSyncCompleted(ctx, ev); err != nil {
			s.log.Warn("publish sync completed failed", "user_id", res.UserID, "error", err)
		}
	}
}

func (s *Syncer) track(userID uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		delete(s.failed, userID)
	} else {
		s.failed[userID] = struct{}{}
	}
}

// Failed lists the users whose last sync reported errors.
func (s *Syncer) Failed() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, 0, len(s.failed))
	for id := range s.failed {
		out = append(out, id)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
