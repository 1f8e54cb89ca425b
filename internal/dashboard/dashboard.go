// Package dashboard keeps one contact list view per session. A view is opened when a
// session first enters the list, loads the contacts once, and is dropped again as soon as
// its session guard redirects.
package dashboard

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"gitlab.com/dirk.krummacker/contacthub/internal/auth"
	"gitlab.com/dirk.krummacker/contacthub/internal/contacts"
	"gitlab.com/dirk.krummacker/contacthub/internal/view"
	pub "gitlab.com/dirk.krummacker/contacthub/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Form keys for the single-flight guard.
const (
	formCreate = "create"
	formUpdate = "update:"
	formDelete = "delete:"
)

// formKey identifies a submission of a contact form by its trimmed values. Only the same
// values submitted again count as the same submission.
func formKey(prefix string, form pub.ContactForm) string {
	address := ""
	if form.Address != nil {
		address = strings.TrimSpace(*form.Address)
	}
	return strings.Join([]string{
		prefix,
		strings.TrimSpace(form.Name),
		strings.TrimSpace(form.Email),
		strings.TrimSpace(form.Phone),
		address,
	}, "\x00")
}

// View is the contact list of one session.
type View struct {
	session auth.Session
	repo    *contacts.Repository
	list    *view.ListView
	guard   *auth.Guard
	logger  *zap.Logger

	// forms lets only one submission of the same form with the same values run at a
	// time; a second one waits for the first and gets its outcome.
	forms singleflight.Group
	// submitting counts the submissions that are running or waiting for a running one.
	submitting atomic.Int32

	mu      sync.Mutex
	notices []contacts.Notice
}

// State is what the user sees of a view.
type State struct {
	view.Snapshot
	Notices []contacts.Notice
}

// Session returns the session the view belongs to.
func (v *View) Session() auth.Session {
	return v.session
}

// Closed reports whether the session of the view has ended.
func (v *View) Closed() bool {
	return v.guard.Redirected()
}

// Load fetches the contacts from the store. A failed fetch leaves an empty list and
// queues the load notice. Like the operations, the fetch is not aborted when ctx is
// cancelled, so a caller that goes away does not leave the list empty.
func (v *View) Load(ctx context.Context) {
	out := v.repo.List(context.WithoutCancel(ctx), &v.session)
	v.list.SetContacts(out.Contacts)
	v.queue(out)
}

// Search sets the search query.
func (v *View) Search(query string) {
	v.list.SetQuery(query)
}

// SetMode switches between card and table layout.
func (v *View) SetMode(mode view.Mode) error {
	return v.list.SetMode(mode)
}

// State returns the list and hands over every queued notice: those of submissions whose
// caller went away and those of failed loads. Notices are handed over only once.
func (v *View) State() State {
	v.mu.Lock()
	notices := v.notices
	v.notices = nil
	v.mu.Unlock()
	return State{Snapshot: v.list.Snapshot(), Notices: notices}
}

// Create adds a contact.
func (v *View) Create(ctx context.Context, form pub.ContactForm) contacts.Outcome {
	return v.submit(ctx, formKey(formCreate, form), func(ctx context.Context) contacts.Outcome {
		return v.repo.Create(ctx, &v.session, form)
	})
}

// Update changes the contact with the given id.
func (v *View) Update(ctx context.Context, id string, form pub.ContactForm) contacts.Outcome {
	return v.submit(ctx, formKey(formUpdate+id, form), func(ctx context.Context) contacts.Outcome {
		return v.repo.Update(ctx, &v.session, id, form)
	})
}

// Delete removes the contact with the given id. The list only loses the contact after
// the store confirmed the removal.
func (v *View) Delete(ctx context.Context, id string) contacts.Outcome {
	return v.submit(ctx, formDelete+id, func(ctx context.Context) contacts.Outcome {
		return v.repo.Delete(ctx, &v.session, id)
	})
}

// Submitting returns the number of submissions that are running or waiting for another
// one.
func (v *View) Submitting() int {
	return int(v.submitting.Load())
}

// submit runs op unless the same form is already being submitted, in which case it waits
// for that submission and returns its outcome. The operation is detached from ctx: a
// caller that goes away does not abort it. The outcome's notices are for the caller to
// show; if the caller that started the submission is gone by then, they are queued for
// the next State call instead.
func (v *View) submit(ctx context.Context, key string, op func(context.Context) contacts.Outcome) contacts.Outcome {
	detached := context.WithoutCancel(ctx)
	led := false
	v.submitting.Add(1)
	defer v.submitting.Add(-1)
	result, _, _ := v.forms.Do(key, func() (any, error) {
		led = true
		out := op(detached)
		v.apply(detached, out)
		return out, nil
	})
	out := result.(contacts.Outcome)
	if !led {
		v.logger.Debug("joined submission in progress", zap.String("form", key), zap.String("session", v.session.ID))
	} else if ctx.Err() != nil {
		v.queue(out)
	}
	return out
}

// apply brings the list up to date after an operation.
func (v *View) apply(ctx context.Context, out contacts.Outcome) {
	switch out.Refresh {
	case contacts.RefreshFull:
		v.Load(ctx)
	case contacts.RefreshRemove:
		v.list.Remove(out.RemovedID)
	}
}

// queue keeps the notice and every validation message of an outcome.
func (v *View) queue(out contacts.Outcome) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if out.Notice != nil {
		v.notices = append(v.notices, *out.Notice)
	}
	for _, message := range out.Messages {
		v.notices = append(v.notices, contacts.Notice{Level: contacts.LevelError, Message: message})
	}
}
