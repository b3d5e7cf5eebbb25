package session

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/lookout/models"
)

// Session is an exclusively owned handle to one live browser tab. A session
// is checked out to at most one attempt at a time; the pool tracks its health
// across uses and retires it once it degrades.
type Session struct {
	ID   int64
	Page *rod.Page

	errScore float64
	useCount int
	created  time.Time
	mu       sync.Mutex
}

// recordSuccess decreases the error score (min 0).
func (s *Session) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useCount++
	s.errScore = math.Max(0, s.errScore-0.5)
}

// recordFailure increases the error score.
func (s *Session) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useCount++
	s.errScore += 1.0
}

// shouldRetire reports whether the session has degraded past the point of
// reuse: repeated failures, heavy use, or plain old age.
func (s *Session) shouldRetire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errScore >= 3.0 {
		return true
	}
	if s.useCount >= 50 {
		return true
	}
	return time.Since(s.created) >= 50*time.Minute
}

// Factory creates the underlying browser tab for a new session.
// Destroyer closes it. Both are injected so the pool logic stays testable
// without a running browser.
type (
	Factory   func() (*rod.Page, error)
	Destroyer func(p *rod.Page)
)

// Pool is a bounded session pool. Sessions are created lazily up to the
// capacity; Acquire blocks (ctx-cancellable) once the cap is reached and all
// sessions are checked out.
type Pool struct {
	capacity  int
	factory   Factory
	destroyer Destroyer

	idle   chan *Session
	mu     sync.Mutex
	all    map[int64]*Session
	nextID atomic.Int64
	active atomic.Int32
	closed bool
}

// NewPool creates an empty pool with the given capacity.
func NewPool(capacity int, factory Factory, destroyer Destroyer) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	return &Pool{
		capacity:  capacity,
		factory:   factory,
		destroyer: destroyer,
		idle:      make(chan *Session, capacity),
		all:       make(map[int64]*Session),
	}
}

// Acquire checks out a session. It reuses an idle one, creates a new one
// under the capacity, or blocks until a session is released or ctx expires.
// A factory failure is fatal: it means the browser process is gone.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	select {
	case s := <-p.idle:
		p.active.Add(1)
		return s, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, models.NewRunError(models.ErrCodeSessionFatal, "session pool is closed", nil)
	}
	if len(p.all) < p.capacity {
		s, err := p.createLocked()
		p.mu.Unlock()
		if err != nil {
			return nil, err
		}
		p.active.Add(1)
		return s, nil
	}
	p.mu.Unlock()

	select {
	case s := <-p.idle:
		p.active.Add(1)
		return s, nil
	case <-ctx.Done():
		return nil, models.Categorize(ctx.Err(), "waiting for a free session")
	}
}

// Release returns a session to the pool, updating its health score. A
// session past its retirement threshold is destroyed instead; the next
// Acquire creates a fresh replacement.
func (p *Pool) Release(s *Session, healthy bool) {
	p.active.Add(-1)

	if healthy {
		s.recordSuccess()
	} else {
		s.recordFailure()
	}

	if s.shouldRetire() {
		slog.Debug("retiring session", "id", s.ID, "useCount", s.useCount)
		p.destroy(s)
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.destroy(s)
		return
	}
	p.idle <- s
}

// Size returns the number of live sessions.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all)
}

// Active returns the number of checked-out sessions.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Close destroys every tracked session. Sessions still checked out are
// destroyed by Release once their owners return them.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case s := <-p.idle:
			p.destroy(s)
		default:
			return
		}
	}
}

func (p *Pool) createLocked() (*Session, error) {
	page, err := p.factory()
	if err != nil {
		return nil, models.NewRunError(models.ErrCodeSessionFatal,
			"failed to create browser session", err)
	}
	s := &Session{
		ID:      p.nextID.Add(1),
		Page:    page,
		created: time.Now(),
	}
	p.all[s.ID] = s
	return s, nil
}

func (p *Pool) destroy(s *Session) {
	p.mu.Lock()
	delete(p.all, s.ID)
	p.mu.Unlock()
	if p.destroyer != nil && s.Page != nil {
		p.destroyer(s.Page)
	}
}
