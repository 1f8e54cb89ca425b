package dashboard

import (
	"context"
	"sync"

	"gitlab.com/dirk.krummacker/contacthub/internal/auth"
	"gitlab.com/dirk.krummacker/contacthub/internal/contacts"
	"gitlab.com/dirk.krummacker/contacthub/internal/view"
	"go.uber.org/zap"
)

// Registry holds the open views, keyed by session token.
type Registry struct {
	source auth.SessionSource
	repo   *contacts.Repository
	logger *zap.Logger

	mu    sync.Mutex
	views map[string]*View
}

// NewRegistry returns an empty registry.
func NewRegistry(source auth.SessionSource, repo *contacts.Repository, logger *zap.Logger) *Registry {
	return &Registry{
		source: source,
		repo:   repo,
		logger: logger,
		views:  make(map[string]*View),
	}
}

// Enter returns the view of the session behind token, opening and loading it on first
// entry. Without a session it returns false and nothing is loaded.
func (r *Registry) Enter(ctx context.Context, token string) (*View, bool) {
	r.mu.Lock()
	existing := r.views[token]
	r.mu.Unlock()
	if existing != nil && !existing.Closed() {
		return existing, true
	}

	v := &View{
		repo:   r.repo,
		list:   view.New(),
		logger: r.logger,
	}
	v.guard = auth.NewGuard(r.source, func() { r.evict(token, v) })
	session, ok := v.guard.Enter(token)
	if !ok {
		return nil, false
	}
	v.session = session

	r.mu.Lock()
	if current := r.views[token]; current != nil && current != existing && !current.Closed() {
		// another request opened the view in the meantime
		r.mu.Unlock()
		v.guard.Close()
		return current, true
	}
	r.views[token] = v
	r.mu.Unlock()
	if existing != nil {
		existing.guard.Close()
	}

	r.logger.Debug("view opened", zap.String("session", session.ID), zap.String("user", session.UserID))
	v.Load(ctx)
	return v, true
}

// evict drops the view after its guard redirected.
func (r *Registry) evict(token string, v *View) {
	r.mu.Lock()
	registered := r.views[token] == v
	if registered {
		delete(r.views, token)
	}
	r.mu.Unlock()
	v.guard.Close()
	if registered {
		r.logger.Debug("view closed", zap.String("session", v.session.ID))
	}
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close closes every view.
func (r *Registry) Close() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()
	for _, v := range views {
		v.guard.Close()
	}
}
