// Package contacts holds the operations on a user's contacts: list, create, update and
// delete. Each operation validates its input, calls the store on behalf of the session
// owner and reports what happened as an Outcome. Errors never leave this package; the
// caller decides from the outcome what to show and how to refresh its list.
package contacts

import (
	"context"
	"errors"

	"github.com/getsentry/sentry-go"
	"gitlab.com/dirk.krummacker/contacthub/internal/auth"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
	"gitlab.com/dirk.krummacker/contacthub/internal/store"
	"gitlab.com/dirk.krummacker/contacthub/internal/validation"
	pub "gitlab.com/dirk.krummacker/contacthub/pkg/model"
	"go.uber.org/zap"
)

// Notices shown to the user.
const (
	MsgLoginRequired = "You must be logged in to add contacts"
	MsgLoadFailed    = "Failed to load contacts"
	MsgAdded         = "Contact added successfully!"
	MsgAddFailed     = "Failed to add contact"
	MsgUpdated       = "Contact updated successfully!"
	MsgUpdateFailed  = "Failed to update contact"
	MsgDeleted       = "Contact deleted successfully"
	MsgDeleteFailed  = "Failed to delete contact"
)

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level   Level
	Message string
}

// Refresh tells the caller how to bring its list up to date after an operation.
type Refresh int

const (
	// RefreshNone leaves the list as it is.
	RefreshNone Refresh = iota
	// RefreshFull fetches the whole list again, so that ids and timestamps assigned by the
	// store are shown.
	RefreshFull
	// RefreshRemove drops the contact with Outcome.RemovedID from the list.
	RefreshRemove
)

// Failure classifies why an operation did not succeed.
type Failure int

const (
	FailureNone Failure = iota
	// FailureValidation means the input broke at least one rule; Outcome.Messages lists
	// them all. The store was not called.
	FailureValidation
	// FailureUnauthenticated means there was no session. The store was not called.
	FailureUnauthenticated
	// FailureNotFound means the owner has no contact with the given id.
	FailureNotFound
	// FailureRemote means the store call failed.
	FailureRemote
)

// Outcome is the result of an operation.
type Outcome struct {
	Contacts  []model.Contact // List only
	Contact   model.Contact   // Create and Update only
	Refresh   Refresh
	RemovedID string
	Notice    *Notice
	Failure   Failure
	Messages  []string
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool {
	return o.Failure == FailureNone
}

// Repository runs the contact operations against a store. It keeps no state of its own
// and is safe for concurrent use.
type Repository struct {
	store  store.ContactStore
	logger *zap.Logger
	report func(op string, err error)
}

// NewRepository returns a repository on top of the given store. Store failures are logged
// and reported to Sentry; without a configured Sentry client the report is a no-op.
func NewRepository(contacts store.ContactStore, logger *zap.Logger) *Repository {
	return &Repository{
		store:  contacts,
		logger: logger,
		report: func(op string, err error) {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("operation", op)
				sentry.CaptureException(err)
			})
		},
	}
}

// List returns the contacts of the session's user, newest first. On failure the list is
// empty and the outcome carries an error notice.
func (r *Repository) List(ctx context.Context, session *auth.Session) Outcome {
	if session == nil {
		return Outcome{Failure: FailureUnauthenticated, Contacts: []model.Contact{}}
	}
	list, err := r.store.ListContacts(ctx, session.UserID)
	if err != nil {
		r.remoteFailure("list", session, "", err)
		return Outcome{
			Failure:  FailureRemote,
			Contacts: []model.Contact{},
			Notice:   &Notice{LevelError, MsgLoadFailed},
		}
	}
	if list == nil {
		list = []model.Contact{}
	}
	return Outcome{Contacts: list}
}

// Create validates the form and inserts a contact owned by the session's user.
func (r *Repository) Create(ctx context.Context, session *auth.Session, form pub.ContactForm) Outcome {
	if session == nil {
		return Outcome{Failure: FailureUnauthenticated, Notice: &Notice{LevelError, MsgLoginRequired}}
	}
	fields, messages := validation.Validate(form)
	if len(messages) > 0 {
		return Outcome{Failure: FailureValidation, Messages: messages}
	}
	contact, err := r.store.InsertContact(ctx, session.UserID, fields)
	if err != nil {
		r.remoteFailure("create", session, "", err)
		return Outcome{Failure: FailureRemote, Notice: &Notice{LevelError, MsgAddFailed}}
	}
	r.logger.Debug("contact created", zap.String("owner", session.UserID), zap.String("id", contact.Id))
	return Outcome{
		Contact: contact,
		Refresh: RefreshFull,
		Notice:  &Notice{LevelSuccess, MsgAdded},
	}
}

// Update validates the form and replaces the editable fields of the contact with the
// given id. Neither the id nor the owner change.
func (r *Repository) Update(ctx context.Context, session *auth.Session, id string, form pub.ContactForm) Outcome {
	if session == nil {
		return Outcome{Failure: FailureUnauthenticated}
	}
	fields, messages := validation.Validate(form)
	if len(messages) > 0 {
		return Outcome{Failure: FailureValidation, Messages: messages}
	}
	contact, err := r.store.UpdateContact(ctx, session.UserID, id, fields)
	if errors.Is(err, store.ErrNotFound) {
		return Outcome{Failure: FailureNotFound, Notice: &Notice{LevelError, MsgUpdateFailed}}
	}
	if err != nil {
		r.remoteFailure("update", session, id, err)
		return Outcome{Failure: FailureRemote, Notice: &Notice{LevelError, MsgUpdateFailed}}
	}
	return Outcome{
		Contact: contact,
		Refresh: RefreshFull,
		Notice:  &Notice{LevelSuccess, MsgUpdated},
	}
}

// Delete removes the contact with the given id. Only a confirmed removal asks the caller
// to drop the contact from its list.
func (r *Repository) Delete(ctx context.Context, session *auth.Session, id string) Outcome {
	if session == nil {
		return Outcome{Failure: FailureUnauthenticated}
	}
	err := r.store.DeleteContact(ctx, session.UserID, id)
	if errors.Is(err, store.ErrNotFound) {
		return Outcome{Failure: FailureNotFound, Notice: &Notice{LevelError, MsgDeleteFailed}}
	}
	if err != nil {
		r.remoteFailure("delete", session, id, err)
		return Outcome{Failure: FailureRemote, Notice: &Notice{LevelError, MsgDeleteFailed}}
	}
	return Outcome{
		Refresh:   RefreshRemove,
		RemovedID: id,
		Notice:    &Notice{LevelSuccess, MsgDeleted},
	}
}

// remoteFailure logs and reports an unexpected store error.
func (r *Repository) remoteFailure(op string, session *auth.Session, id string, err error) {
	r.logger.Error("contact operation failed",
		zap.String("operation", op),
		zap.String("owner", session.UserID),
		zap.String("id", id),
		zap.Error(err))
	r.report(op, err)
}
