package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/market-sales/internal/service"
	"github.com/iliyamo/market-sales/internal/syncer"
)

type fakeStates struct {
	mu       sync.Mutex
	triggers []string
	users    []uint64
	err      error
}

func (f *fakeStates) RecomputeStates(_ context.Context, userID uint64, trigger string) (service.RecomputeReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	f.triggers = append(f.triggers, trigger)
	return service.RecomputeReport{Users: 1}, f.err
}

func (f *fakeStates) RecomputeAll(_ context.Context, trigger string) (service.RecomputeReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return service.RecomputeReport{}, f.err
}

func (f *fakeStates) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.triggers...)
}

type fakeSync struct {
	mu      sync.Mutex
	failed  []uint64
	retried []uint64
}

func (f *fakeSync) Failed() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.failed...)
}

func (f *fakeSync) SyncWithRetry(_ context.Context, userID uint64, attempts int, _ time.Duration) syncer.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, userID)
	f.failed = nil
	return syncer.Result{UserID: userID, Attempts: attempts}
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestScheduler_RunsAtStartAndOnTick(t *testing.T) {
	states := &fakeStates{err: errors.New("db down")}
	resync := &fakeSync{failed: []uint64{4, 9}}
	s := New(states, resync, 10*time.Millisecond, 2, time.Millisecond, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	done := s.Start(ctx)

	require.Eventually(t, func() bool { return len(states.calls()) >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	calls := states.calls()
	assert.Equal(t, service.TriggerStart, calls[0])
	assert.Equal(t, service.TriggerTick, calls[1])

	resync.mu.Lock()
	defer resync.mu.Unlock()
	assert.Equal(t, []uint64{4, 9}, resync.retried, "failed users are retried once, then cleared")
}

func TestScheduler_WithoutSync(t *testing.T) {
	states := &fakeStates{}
	s := New(states, nil, time.Hour, 1, 0, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	done := s.Start(ctx)
	require.Eventually(t, func() bool { return len(states.calls()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []string{service.TriggerStart}, states.calls())
}

func TestScheduler_KickRecomputesThenSyncs(t *testing.T) {
	states := &fakeStates{}
	resync := &fakeSync{}
	s := New(states, resync, time.Hour, 3, 0, quiet)

	s.Kick(12, service.TriggerLogin)
	s.Kick(13, service.TriggerLogout)
	s.Wait()

	states.mu.Lock()
	assert.ElementsMatch(t, []uint64{12, 13}, states.users)
	assert.ElementsMatch(t, []string{service.TriggerLogin, service.TriggerLogout}, states.triggers)
	states.mu.Unlock()

	resync.mu.Lock()
	defer resync.mu.Unlock()
	assert.ElementsMatch(t, []uint64{12, 13}, resync.retried)
}

func TestScheduler_KickWithoutSync(t *testing.T) {
	states := &fakeStates{err: errors.New("db down")}
	s := New(states, nil, time.Hour, 1, 0, quiet)
	s.Kick(5, service.TriggerLogin)
	s.Wait()
	assert.Equal(t, []string{service.TriggerLogin}, states.calls())
}
