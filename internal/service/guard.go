package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lazarohernan/abogados/internal/model"
)

// ProfileSource fetches the quota-relevant profile slice for a user.
type ProfileSource interface {
	GetQuotaProfile(ctx context.Context, userID string) (*model.QuotaProfile, error)
}

// TurnCounter reports how many user turns a user has persisted so far.
type TurnCounter interface {
	CountUserTurns(ctx context.Context, userID string) (int, error)
}

type rateWindow struct {
	start time.Time
	count int
}

// Guard is the admission control consulted before any message is forwarded.
// It applies, in order: subscription status, trial expiry, trial message
// quota, then a fixed-window per-user rate cap. The rate counter only
// increments once the earlier checks pass, so quota rejections never consume
// rate budget.
//
// The window is a plain fixed window, not a sliding log: bursts straddling a
// window boundary can reach up to 2x the nominal rate. Known limitation.
type Guard struct {
	profiles ProfileSource
	turns    TurnCounter

	windowSize   time.Duration
	maxPerWindow int
	trialLimit   int

	now func() time.Time

	mu      sync.Mutex
	windows map[string]*rateWindow
}

func NewGuard(profiles ProfileSource, turns TurnCounter, windowSize time.Duration, maxPerWindow, trialLimit int) *Guard {
	return &Guard{
		profiles:     profiles,
		turns:        turns,
		windowSize:   windowSize,
		maxPerWindow: maxPerWindow,
		trialLimit:   trialLimit,
		now:          time.Now,
		windows:      make(map[string]*rateWindow),
	}
}

// Check admits or rejects one send for the given user. A nil return means
// the request may proceed (and has been counted against the rate window).
func (g *Guard) Check(ctx context.Context, userID string) *model.RelayError {
	profile, err := g.profiles.GetQuotaProfile(ctx, userID)
	if err != nil {
		log.Printf("[Guard] profile fetch failed for %s: %v", userID, err)
		return model.NewRelayError(model.ErrStorage)
	}

	if profile.Status == model.StatusInactive {
		return model.NewRelayError(model.ErrSubscriptionInactive)
	}

	if profile.Status == model.StatusTrial {
		if profile.TrialEnd != nil && profile.TrialEnd.Before(g.now()) {
			return model.NewRelayError(model.ErrTrialExpired)
		}

		count, err := g.turns.CountUserTurns(ctx, userID)
		if err != nil {
			log.Printf("[Guard] turn count failed for %s: %v", userID, err)
			return model.NewRelayError(model.ErrStorage)
		}
		if count >= g.trialLimit {
			return model.NewRelayError(model.ErrQuotaExceeded)
		}
	}

	if !g.allow(userID) {
		return model.NewRelayError(model.ErrRateLimited)
	}
	return nil
}

// allow applies the fixed-window counter: reset when the window has elapsed,
// otherwise increment up to the cap.
func (g *Guard) allow(userID string) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	w, ok := g.windows[userID]
	if !ok || now.Sub(w.start) >= g.windowSize {
		g.windows[userID] = &rateWindow{start: now, count: 1}
		return true
	}
	if w.count >= g.maxPerWindow {
		return false
	}
	w.count++
	return true
}
