package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
)

var (
	contactColumns = []string{"id", "owner", "name", "email", "phone", "address", "created_at", "updated_at"}
	fixedTime      = time.Date(2024, time.March, 2, 10, 30, 0, 0, time.UTC)
)

func strPtr(s string) *string {
	return &s
}

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return db, mock
}

// expectPreparedStatements instructs the mock object to expect that several statements are being
// prepared.
func expectPreparedStatements(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare("INSERT INTO contacts")
	mock.ExpectPrepare("SELECT \\* FROM contacts WHERE owner")
	mock.ExpectPrepare("SELECT \\* FROM contacts WHERE id")
	mock.ExpectPrepare("UPDATE contacts")
	mock.ExpectPrepare("DELETE FROM contacts")
	mock.ExpectPrepare("INSERT INTO users")
	mock.ExpectPrepare("SELECT \\* FROM users")
}

// newMockStore prepares a store on the mock database with a fixed clock.
func newMockStore(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *MySQLStore {
	expectPreparedStatements(mock)
	s, err := NewMySQLStore(db)
	require.NoError(t, err)
	s.now = func() time.Time { return fixedTime }
	return s
}

// TestMySQLListContacts expects that the contacts of one owner are selected newest first.
func TestMySQLListContacts(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	rows := mock.NewRows(contactColumns).
		AddRow("c-2", "u-1", "Berta", "berta@example.com", "+420 222", nil, fixedTime.Add(time.Hour), fixedTime.Add(time.Hour)).
		AddRow("c-1", "u-1", "Aaron", "aaron@example.com", "+420 111", "Praha", fixedTime, fixedTime)
	mock.ExpectQuery("SELECT \\* FROM contacts WHERE owner = \\? ORDER BY created_at DESC").
		WithArgs("u-1").
		WillReturnRows(rows)

	contacts, err := s.ListContacts(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, 2, len(contacts))
	assert.Equal(t, "c-2", contacts[0].Id)
	assert.Nil(t, contacts[0].Address)
	assert.Equal(t, "c-1", contacts[1].Id)
	assert.Equal(t, "Praha", *contacts[1].Address)
	assert.Equal(t, fixedTime, contacts[1].CreatedAt)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestMySQLListContactsEmpty expects an empty, non-nil slice when the owner has no contacts.
func TestMySQLListContactsEmpty(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectQuery("SELECT \\* FROM contacts WHERE owner").
		WithArgs("u-1").
		WillReturnRows(mock.NewRows(contactColumns))

	contacts, err := s.ListContacts(context.Background(), "u-1")
	require.NoError(t, err)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
}

// TestMySQLInsertContact expects that id, owner and timestamps are assigned by the store and a
// missing address is stored as NULL.
func TestMySQLInsertContact(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectExec("INSERT INTO contacts").
		WithArgs(sqlmock.AnyArg(), "u-1", "Ana", "ana@x.com", "555", nil, fixedTime, fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	contact, err := s.InsertContact(context.Background(), "u-1", model.Fields{
		Name: "Ana", Email: "ana@x.com", Phone: "555",
	})
	require.NoError(t, err)
	assert.Len(t, contact.Id, 36)
	assert.Equal(t, "u-1", contact.Owner)
	assert.Nil(t, contact.Address)
	assert.Equal(t, fixedTime, contact.CreatedAt)
	assert.Equal(t, fixedTime, contact.UpdatedAt)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestMySQLInsertContactTwice expects two distinct ids for identical values.
func TestMySQLInsertContactTwice(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	for i := 0; i < 2; i++ {
		mock.ExpectExec("INSERT INTO contacts").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	fields := model.Fields{Name: "Ana", Email: "ana@x.com", Phone: "555"}
	first, err := s.InsertContact(context.Background(), "u-1", fields)
	require.NoError(t, err)
	second, err := s.InsertContact(context.Background(), "u-1", fields)
	require.NoError(t, err)
	assert.NotEqual(t, first.Id, second.Id)
}

// TestMySQLUpdateContact expects the update to be scoped to id and owner and the contact to be
// selected again afterwards.
func TestMySQLUpdateContact(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectExec("UPDATE contacts").
		WithArgs("Rudi Völler", "rudi@example.com", "+49 1234567890", "Köln", fixedTime, "c-17", "u-1").
		WillReturnResult(sqlmock.NewResult(-1, 1))
	mock.ExpectQuery("SELECT \\* FROM contacts WHERE id = \\? AND owner = \\?").
		WithArgs("c-17", "u-1").
		WillReturnRows(mock.NewRows(contactColumns).
			AddRow("c-17", "u-1", "Rudi Völler", "rudi@example.com", "+49 1234567890", "Köln", fixedTime.Add(-time.Hour), fixedTime))

	contact, err := s.UpdateContact(context.Background(), "u-1", "c-17", model.Fields{
		Name: "Rudi Völler", Email: "rudi@example.com", Phone: "+49 1234567890", Address: strPtr("Köln"),
	})
	require.NoError(t, err)
	assert.Equal(t, "c-17", contact.Id)
	assert.Equal(t, "u-1", contact.Owner)
	assert.Equal(t, fixedTime.Add(-time.Hour), contact.CreatedAt)
	assert.Equal(t, fixedTime, contact.UpdatedAt)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestMySQLUpdateContactNotFound expects ErrNotFound when no row of the owner matches, and
// that no select follows.
func TestMySQLUpdateContactNotFound(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectExec("UPDATE contacts").WillReturnResult(sqlmock.NewResult(-1, 0))

	_, err := s.UpdateContact(context.Background(), "u-2", "c-17", model.Fields{Name: "x", Email: "x@y.z", Phone: "1"})
	assert.ErrorIs(t, err, ErrNotFound)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestMySQLDeleteContact expects the delete to be scoped to id and owner.
func TestMySQLDeleteContact(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectExec("DELETE FROM contacts").
		WithArgs("c-42", "u-1").
		WillReturnResult(sqlmock.NewResult(-1, 1))
	mock.ExpectExec("DELETE FROM contacts").
		WithArgs("c-9999", "u-1").
		WillReturnResult(sqlmock.NewResult(-1, 0))

	assert.NoError(t, s.DeleteContact(context.Background(), "u-1", "c-42"))
	assert.ErrorIs(t, s.DeleteContact(context.Background(), "u-1", "c-9999"), ErrNotFound)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestMySQLDeleteContactFailure expects database errors to be wrapped, not translated.
func TestMySQLDeleteContactFailure(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	boom := errors.New("connection reset")
	mock.ExpectExec("DELETE FROM contacts").WillReturnError(boom)

	err := s.DeleteContact(context.Background(), "u-1", "c-42")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

// TestMySQLInsertUser expects a duplicate email to be reported as ErrDuplicate.
func TestMySQLInsertUser(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "erika@example.com", "hash", fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	user, err := s.InsertUser(context.Background(), "erika@example.com", "hash")
	require.NoError(t, err)
	assert.Len(t, user.Id, 36)
	_, err = s.InsertUser(context.Background(), "erika@example.com", "hash")
	assert.ErrorIs(t, err, ErrDuplicate)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestMySQLFindUserByEmail expects a found user and ErrNotFound for an unknown email.
func TestMySQLFindUserByEmail(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	s := newMockStore(t, db, mock)

	columns := []string{"id", "email", "password_hash", "created_at"}
	mock.ExpectQuery("SELECT \\* FROM users WHERE email").
		WithArgs("erika@example.com").
		WillReturnRows(mock.NewRows(columns).AddRow("u-1", "erika@example.com", "hash", fixedTime))
	mock.ExpectQuery("SELECT \\* FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(mock.NewRows(columns))

	user, err := s.FindUserByEmail(context.Background(), "erika@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.Id)
	assert.Equal(t, "hash", user.PasswordHash)
	_, err = s.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
