package crawler

import (
	"context"
	"sync"
	"time"
)

// visitTracker provides thread-safe seen-URL tracking within one job.
type visitTracker interface {
	MarkIfNew(url string) bool
}

type concurrentVisitTracker struct {
	seen sync.Map
}

func newConcurrentVisitTracker() *concurrentVisitTracker {
	return &concurrentVisitTracker{}
}

// MarkIfNew stores the URL if it has not been seen before and returns true.
// URLs are compared in normalized form.
func (t *concurrentVisitTracker) MarkIfNew(url string) bool {
	if url == "" {
		return false
	}
	key, err := NormalizeURL(url)
	if err != nil {
		key = url
	}
	_, loaded := t.seen.LoadOrStore(key, struct{}{})
	return !loaded
}

type timerPauseController struct{}

// NewTimerPauser returns a Pauser backed by a timer that honors cancellation.
func NewTimerPauser() Pauser {
	return &timerPauseController{}
}

func (p *timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
