package auth

import (
	"sync"
	"time"
)

// Guard gates a view behind an active session. Enter checks the session once; while the
// view is open the guard watches for sign-out and expiry and calls redirect, at most once,
// as soon as the session is gone. Close must be called when the view is torn down.
type Guard struct {
	source   SessionSource
	redirect func()

	mu      sync.Mutex
	closed  bool
	fired   bool
	started bool

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewGuard returns a guard that consults source and calls redirect when the session is
// absent or ends. The redirect function may call Close.
func NewGuard(source SessionSource, redirect func()) *Guard {
	return &Guard{
		source:   source,
		redirect: redirect,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Enter looks up the session of the token. Without a session it redirects immediately and
// returns false; nothing is watched in that case. With a session it starts watching and
// returns the session.
func (g *Guard) Enter(token string) (Session, bool) {
	session, ok := g.source.Current(token)
	if !ok {
		g.fire()
		return Session{}, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.started {
		return session, !g.closed
	}
	g.started = true
	events, unsubscribe := g.source.Subscribe(session.UserID)
	go g.watch(token, session.ExpiresAt, events, unsubscribe)
	return session, true
}

// watch waits until the session ends or the guard is closed.
func (g *Guard) watch(token string, expiry time.Time, events <-chan Event, unsubscribe func()) {
	timer := time.NewTimer(time.Until(expiry))
	defer timer.Stop()

	ended := false
	for !ended {
		select {
		case _, ok := <-events:
			if !ok {
				unsubscribe()
				close(g.done)
				return
			}
			// other sessions of the same user may have ended, not necessarily this one
			_, active := g.source.Current(token)
			ended = !active
		case <-timer.C:
			ended = true
		case <-g.stop:
			unsubscribe()
			close(g.done)
			return
		}
	}
	unsubscribe()
	close(g.done)
	g.fire()
}

// fire calls redirect unless it was called before or the guard is closed.
func (g *Guard) fire() {
	g.mu.Lock()
	if g.closed || g.fired {
		g.mu.Unlock()
		return
	}
	g.fired = true
	g.mu.Unlock()
	g.redirect()
}

// Redirected reports whether the guard has sent the caller to the sign in page.
func (g *Guard) Redirected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}

// Close stops watching and ends the subscription. After Close returns no redirect is
// started any more. Close is idempotent.
func (g *Guard) Close() {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		started := g.started
		g.mu.Unlock()
		close(g.stop)
		if started {
			<-g.done
		}
	})
}
