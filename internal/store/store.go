// Package store persists users and contacts. Every contact statement is scoped to the
// owning user: a caller can never read or change the rows of another owner, whatever id
// it passes in.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/dirk.krummacker/contacthub/internal/config"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
	"gorm.io/driver/postgres"
)

var (
	// ErrNotFound is returned when no row matches the id and owner.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = errors.New("already exists")
)

// ContactStore holds contact rows keyed by owner. Ids and timestamps are assigned here.
type ContactStore interface {
	// ListContacts returns the contacts of the owner, newest first.
	ListContacts(ctx context.Context, owner string) ([]model.Contact, error)
	// InsertContact creates a contact for the owner and returns it with its new id.
	InsertContact(ctx context.Context, owner string, fields model.Fields) (model.Contact, error)
	// UpdateContact replaces the editable fields of the owner's contact with the given id.
	UpdateContact(ctx context.Context, owner string, id string, fields model.Fields) (model.Contact, error)
	// DeleteContact removes the owner's contact with the given id.
	DeleteContact(ctx context.Context, owner string, id string) error
}

// UserStore holds the accounts that can sign in.
type UserStore interface {
	InsertUser(ctx context.Context, email string, passwordHash string) (model.User, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
}

// Store is the complete persistence layer of the service.
type Store interface {
	ContactStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the database configured in cfg.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		s, err := OpenMySQL(cfg.DSN())
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := NewPostgresStore(postgres.Open(cfg.DSN()))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// now returns the current time the way it is stored in the database.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
