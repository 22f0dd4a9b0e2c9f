package tender

import (
	"fmt"
	"sync"
	"time"
)

// ProgressFunc observes analysis progress. fraction is in [0,1]; message is
// a human-readable status line. Workers report concurrently, so the
// observer may be invoked from several goroutines at once and must do its
// own locking. Called under no tracker lock; keep it fast.
type ProgressFunc func(fraction float64, message string)

// progressTracker counts completed tasks and keeps the append-only log the
// caller gets back with the outcome. All mutation happens under one mutex;
// workers on several goroutines report through it concurrently.
type progressTracker struct {
	mu      sync.Mutex
	total   int
	done    int
	entries []string
	notify  ProgressFunc
	now     func() time.Time
}

func newProgressTracker(total int, notify ProgressFunc) *progressTracker {
	return &progressTracker{total: total, notify: notify, now: time.Now}
}

// step records a message and advances the task counter.
func (p *progressTracker) step(message string) {
	p.record(message, true)
}

// note records a message without advancing the counter.
func (p *progressTracker) note(message string) {
	p.record(message, false)
}

func (p *progressTracker) record(message string, increment bool) {
	p.mu.Lock()
	if increment {
		p.done++
	}
	fraction := 1.0
	if p.total > 0 {
		fraction = float64(p.done) / float64(p.total)
		if fraction > 1 {
			fraction = 1
		}
	}
	p.entries = append(p.entries, fmt.Sprintf("[%s] %s", p.now().Format("15:04:05"), message))
	notify := p.notify
	p.mu.Unlock()

	if notify != nil {
		notify(fraction, message)
	}
}

// messages returns a copy of the log so callers cannot race the tracker.
func (p *progressTracker) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *progressTracker) fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total == 0 {
		return 1
	}
	f := float64(p.done) / float64(p.total)
	if f > 1 {
		f = 1
	}
	return f
}
