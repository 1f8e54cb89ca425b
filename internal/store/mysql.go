package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
)

// mysqlDuplicateEntry is the MySQL error number for a violated unique key.
const mysqlDuplicateEntry = 1062

// MySQLStore keeps users and contacts in MySQL. All statements are prepared once when the
// store is created.
type MySQLStore struct {
	db  *sqlx.DB
	now func() time.Time

	// Prepared statements offer a significant speed increase if executed many times.
	insertContact         *sqlx.NamedStmt
	selectWhereOwner      *sqlx.Stmt
	selectWhereIdAndOwner *sqlx.Stmt
	updateWhereIdAndOwner *sqlx.NamedStmt
	deleteWhereIdAndOwner *sqlx.Stmt
	insertUser            *sqlx.NamedStmt
	selectUserWhereEmail  *sqlx.Stmt
}

// OpenMySQL opens a MySQL connection with the given data source name and prepares the
// statements of the store.
func OpenMySQL(dsn string) (*MySQLStore, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	s, err := NewMySQLStore(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLStore wraps the specified sql database and prepares all statements. The
// database argument can be a real database for production use or a mock database within
// unit tests.
func NewMySQLStore(sqlDB *sql.DB) (*MySQLStore, error) {
	s := &MySQLStore{db: sqlx.NewDb(sqlDB, "mysql"), now: now}
	var err error
	if s.insertContact, err = s.db.PrepareNamed(`
		INSERT INTO contacts (id, owner, name, email, phone, address, created_at, updated_at)
		VALUES (:id, :owner, :name, :email, :phone, :address, :created_at, :updated_at)
	`); err != nil {
		return nil, fmt.Errorf("could not prepare contact insert: %w", err)
	}
	if s.selectWhereOwner, err = s.db.Preparex(`
		SELECT * FROM contacts WHERE owner = ? ORDER BY created_at DESC
	`); err != nil {
		return nil, fmt.Errorf("could not prepare contact list: %w", err)
	}
	if s.selectWhereIdAndOwner, err = s.db.Preparex(`
		SELECT * FROM contacts WHERE id = ? AND owner = ?
	`); err != nil {
		return nil, fmt.Errorf("could not prepare contact select: %w", err)
	}
	if s.updateWhereIdAndOwner, err = s.db.PrepareNamed(`
		UPDATE contacts
		SET name = :name, email = :email, phone = :phone, address = :address, updated_at = :updated_at
		WHERE id = :id AND owner = :owner
	`); err != nil {
		return nil, fmt.Errorf("could not prepare contact update: %w", err)
	}
	if s.deleteWhereIdAndOwner, err = s.db.Preparex(`
		DELETE FROM contacts WHERE id = ? AND owner = ?
	`); err != nil {
		return nil, fmt.Errorf("could not prepare contact delete: %w", err)
	}
	if s.insertUser, err = s.db.PrepareNamed(`
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (:id, :email, :password_hash, :created_at)
	`); err != nil {
		return nil, fmt.Errorf("could not prepare user insert: %w", err)
	}
	if s.selectUserWhereEmail, err = s.db.Preparex(`
		SELECT * FROM users WHERE email = ?
	`); err != nil {
		return nil, fmt.Errorf("could not prepare user select: %w", err)
	}
	return s, nil
}

// ListContacts returns the contacts of the owner, newest first.
func (s *MySQLStore) ListContacts(ctx context.Context, owner string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if err := s.selectWhereOwner.SelectContext(ctx, &contacts, owner); err != nil {
		return nil, fmt.Errorf("could not select contacts: %w", err)
	}
	return contacts, nil
}

// InsertContact creates a contact for the owner. The id and both timestamps are assigned
// here.
func (s *MySQLStore) InsertContact(ctx context.Context, owner string, fields model.Fields) (model.Contact, error) {
	created := s.now()
	contact := model.Contact{
		Id:        uuid.NewString(),
		Owner:     owner,
		Name:      fields.Name,
		Email:     fields.Email,
		Phone:     fields.Phone,
		Address:   fields.Address,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if _, err := s.insertContact.ExecContext(ctx, contact); err != nil {
		return model.Contact{}, fmt.Errorf("could not insert contact: %w", err)
	}
	return contact, nil
}

// UpdateContact replaces name, email, phone and address of the owner's contact and
// responds with the full contact after the update. Id and owner never change.
func (s *MySQLStore) UpdateContact(ctx context.Context, owner string, id string, fields model.Fields) (model.Contact, error) {
	row := model.Contact{
		Id:        id,
		Owner:     owner,
		Name:      fields.Name,
		Email:     fields.Email,
		Phone:     fields.Phone,
		Address:   fields.Address,
		UpdatedAt: s.now(),
	}
	result, err := s.updateWhereIdAndOwner.ExecContext(ctx, row)
	if err != nil {
		return model.Contact{}, fmt.Errorf("could not update contact: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.Contact{}, fmt.Errorf("could not update contact: %w", err)
	}
	if rowsAffected == 0 {
		return model.Contact{}, ErrNotFound
	}

	var contacts []model.Contact
	if err := s.selectWhereIdAndOwner.SelectContext(ctx, &contacts, id, owner); err != nil {
		return model.Contact{}, fmt.Errorf("could not select contact: %w", err)
	}
	if len(contacts) == 0 {
		return model.Contact{}, ErrNotFound
	}
	return contacts[0], nil
}

// DeleteContact removes the owner's contact with the given id.
func (s *MySQLStore) DeleteContact(ctx context.Context, owner string, id string) error {
	result, err := s.deleteWhereIdAndOwner.ExecContext(ctx, id, owner)
	if err != nil {
		return fmt.Errorf("could not delete contact: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not delete contact: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertUser creates an account. A second account with the same email fails with
// ErrDuplicate.
func (s *MySQLStore) InsertUser(ctx context.Context, email string, passwordHash string) (model.User, error) {
	user := model.User{
		Id:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	if _, err := s.insertUser.ExecContext(ctx, user); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return model.User{}, ErrDuplicate
		}
		return model.User{}, fmt.Errorf("could not insert user: %w", err)
	}
	return user, nil
}

// FindUserByEmail returns the account with the given email.
func (s *MySQLStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	if err := s.selectUserWhereEmail.GetContext(ctx, &user, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("could not select user: %w", err)
	}
	return user, nil
}

// Ping checks that the database is reachable.
func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the prepared statements and the connection pool.
func (s *MySQLStore) Close() error {
	for _, stmt := range []interface{ Close() error }{
		s.insertContact, s.selectWhereOwner, s.selectWhereIdAndOwner,
		s.updateWhereIdAndOwner, s.deleteWhereIdAndOwner, s.insertUser, s.selectUserWhereEmail,
	} {
		stmt.Close()
	}
	return s.db.Close()
}
