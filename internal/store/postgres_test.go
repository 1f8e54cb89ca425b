package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
	"gorm.io/driver/postgres"
)

// newMockGormStore opens the gorm store on a mock connection with a fixed clock.
func newMockGormStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	db, mock := createMockObjects(t)
	t.Cleanup(func() { db.Close() })
	s, err := NewPostgresStore(postgres.New(postgres.Config{Conn: db}))
	require.NoError(t, err)
	s.now = func() time.Time { return fixedTime }
	return s, mock
}

// TestGormListContacts expects an owner scoped select ordered newest first.
func TestGormListContacts(t *testing.T) {
	s, mock := newMockGormStore(t)

	mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE owner = \$1 ORDER BY created_at DESC`).
		WithArgs("u-1").
		WillReturnRows(mock.NewRows(contactColumns).
			AddRow("c-2", "u-1", "Berta", "berta@example.com", "+420 222", nil, fixedTime.Add(time.Hour), fixedTime.Add(time.Hour)).
			AddRow("c-1", "u-1", "Aaron", "aaron@example.com", "+420 111", "Praha", fixedTime, fixedTime))

	contacts, err := s.ListContacts(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, 2, len(contacts))
	assert.Equal(t, "c-2", contacts[0].Id)
	assert.Equal(t, "c-1", contacts[1].Id)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestGormInsertContact expects the store to assign id and timestamps.
func TestGormInsertContact(t *testing.T) {
	s, mock := newMockGormStore(t)

	mock.ExpectExec(`INSERT INTO "contacts"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	contact, err := s.InsertContact(context.Background(), "u-1", model.Fields{
		Name: "Ana", Email: "ana@x.com", Phone: "555",
	})
	require.NoError(t, err)
	assert.Len(t, contact.Id, 36)
	assert.Equal(t, "u-1", contact.Owner)
	assert.Nil(t, contact.Address)
	assert.Equal(t, fixedTime, contact.CreatedAt)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestGormUpdateContact expects an owner scoped update followed by a select.
func TestGormUpdateContact(t *testing.T) {
	s, mock := newMockGormStore(t)

	mock.ExpectExec(`UPDATE "contacts" SET .* WHERE owner = \$\d+ AND id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "contacts" WHERE owner = \$1 AND id = \$2`).
		WillReturnRows(mock.NewRows(contactColumns).
			AddRow("c-17", "u-1", "Rudi", "rudi@example.com", "+49 1", nil, fixedTime, fixedTime))

	contact, err := s.UpdateContact(context.Background(), "u-1", "c-17", model.Fields{
		Name: "Rudi", Email: "rudi@example.com", Phone: "+49 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "c-17", contact.Id)
	assert.Equal(t, "Rudi", contact.Name)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestGormUpdateContactNotFound expects ErrNotFound when the owner has no such contact.
func TestGormUpdateContactNotFound(t *testing.T) {
	s, mock := newMockGormStore(t)

	mock.ExpectExec(`UPDATE "contacts"`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.UpdateContact(context.Background(), "u-2", "c-17", model.Fields{Name: "x", Email: "x@y.z", Phone: "1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestGormDeleteContact expects an owner scoped delete.
func TestGormDeleteContact(t *testing.T) {
	s, mock := newMockGormStore(t)

	mock.ExpectExec(`DELETE FROM "contacts" WHERE owner = \$1 AND id = \$2`).
		WithArgs("u-1", "c-42").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "contacts"`).
		WithArgs("u-1", "c-9999").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.DeleteContact(context.Background(), "u-1", "c-42"))
	assert.ErrorIs(t, s.DeleteContact(context.Background(), "u-1", "c-9999"), ErrNotFound)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestGormFindUserByEmail expects ErrNotFound for an unknown email.
func TestGormFindUserByEmail(t *testing.T) {
	s, mock := newMockGormStore(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(mock.NewRows([]string{"id", "email", "password_hash", "created_at"}))

	_, err := s.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
