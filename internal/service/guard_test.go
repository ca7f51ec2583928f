package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lazarohernan/abogados/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfiles struct {
	profile *model.QuotaProfile
	err     error
}

func (f *fakeProfiles) GetQuotaProfile(ctx context.Context, userID string) (*model.QuotaProfile, error) {
	return f.profile, f.err
}

type fakeTurns struct {
	count int
	err   error
}

func (f *fakeTurns) CountUserTurns(ctx context.Context, userID string) (int, error) {
	return f.count, f.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGuard(profiles ProfileSource, turns TurnCounter) (*Guard, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := NewGuard(profiles, turns, time.Minute, 10, 10)
	g.now = clock.Now
	return g, clock
}

func activeProfile() *fakeProfiles {
	return &fakeProfiles{profile: &model.QuotaProfile{Status: model.StatusActive}}
}

func TestGuardInactiveSubscription(t *testing.T) {
	g, _ := newTestGuard(&fakeProfiles{profile: &model.QuotaProfile{Status: model.StatusInactive}}, &fakeTurns{})

	rerr := g.Check(context.Background(), "user-1")
	require.NotNil(t, rerr)
	assert.Equal(t, model.ErrSubscriptionInactive, rerr.Kind)
}

func TestGuardTrialExpired(t *testing.T) {
	profiles := &fakeProfiles{}
	g, clock := newTestGuard(profiles, &fakeTurns{count: 0})
	expired := clock.Now().Add(-time.Hour)
	profiles.profile = &model.QuotaProfile{Status: model.StatusTrial, TrialEnd: &expired}

	rerr := g.Check(context.Background(), "user-1")
	require.NotNil(t, rerr)
	assert.Equal(t, model.ErrTrialExpired, rerr.Kind)
}

func TestGuardTrialQuotaExceeded(t *testing.T) {
	profiles := &fakeProfiles{}
	g, clock := newTestGuard(profiles, &fakeTurns{count: 10})
	end := clock.Now().Add(24 * time.Hour)
	profiles.profile = &model.QuotaProfile{Status: model.StatusTrial, TrialEnd: &end}

	rerr := g.Check(context.Background(), "user-1")
	require.NotNil(t, rerr)
	assert.Equal(t, model.ErrQuotaExceeded, rerr.Kind)
}

func TestGuardTrialUnderQuotaPasses(t *testing.T) {
	profiles := &fakeProfiles{}
	g, clock := newTestGuard(profiles, &fakeTurns{count: 9})
	end := clock.Now().Add(24 * time.Hour)
	profiles.profile = &model.QuotaProfile{Status: model.StatusTrial, TrialEnd: &end}

	assert.Nil(t, g.Check(context.Background(), "user-1"))
}

func TestGuardTrialWithoutEndDateOnlyChecksQuota(t *testing.T) {
	profiles := &fakeProfiles{profile: &model.QuotaProfile{Status: model.StatusTrial}}
	g, _ := newTestGuard(profiles, &fakeTurns{count: 3})

	assert.Nil(t, g.Check(context.Background(), "user-1"))
}

func TestGuardRateLimitWindow(t *testing.T) {
	g, clock := newTestGuard(activeProfile(), &fakeTurns{})

	for i := 0; i < 10; i++ {
		require.Nil(t, g.Check(context.Background(), "user-1"), "request %d should pass", i+1)
	}

	rerr := g.Check(context.Background(), "user-1")
	require.NotNil(t, rerr)
	assert.Equal(t, model.ErrRateLimited, rerr.Kind)

	// A fresh window admits again.
	clock.Advance(time.Minute)
	assert.Nil(t, g.Check(context.Background(), "user-1"))
}

func TestGuardRateLimitIsPerUser(t *testing.T) {
	g, _ := newTestGuard(activeProfile(), &fakeTurns{})

	for i := 0; i < 10; i++ {
		require.Nil(t, g.Check(context.Background(), "user-1"))
	}
	require.NotNil(t, g.Check(context.Background(), "user-1"))

	assert.Nil(t, g.Check(context.Background(), "user-2"))
}

func TestGuardQuotaRejectionConsumesNoRateBudget(t *testing.T) {
	profiles := &fakeProfiles{}
	turns := &fakeTurns{count: 10}
	g, clock := newTestGuard(profiles, turns)
	end := clock.Now().Add(24 * time.Hour)
	profiles.profile = &model.QuotaProfile{Status: model.StatusTrial, TrialEnd: &end}

	// Well past the rate cap, the rejection stays quota_exceeded: the window
	// counter never ran.
	for i := 0; i < 15; i++ {
		rerr := g.Check(context.Background(), "user-1")
		require.NotNil(t, rerr)
		assert.Equal(t, model.ErrQuotaExceeded, rerr.Kind)
	}
}

func TestGuardProfileFetchFailure(t *testing.T) {
	g, _ := newTestGuard(&fakeProfiles{err: errors.New("db down")}, &fakeTurns{})

	rerr := g.Check(context.Background(), "user-1")
	require.NotNil(t, rerr)
	assert.Equal(t, model.ErrStorage, rerr.Kind)
}

func TestGuardConcurrentChecksShareOneWindow(t *testing.T) {
	g, _ := newTestGuard(activeProfile(), &fakeTurns{})

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Check(context.Background(), "user-1") == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	// Two tabs hammering the same account still share one counter.
	assert.Equal(t, int32(10), admitted.Load())
}
