package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
	"gorm.io/gorm"
)

// GormStore keeps users and contacts in PostgreSQL through the gorm OR mapper.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPostgresStore opens the OR mapper on the given dialector. Production code passes
// postgres.Open(dsn), unit tests a dialector wrapping a mock connection.
func NewPostgresStore(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	return &GormStore{db: db, now: now}, nil
}

// ownedBy restricts a query to the rows of one owner.
func ownedBy(owner string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner = ?", owner)
	}
}

// Migrate creates or extends the tables of the store.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&model.User{}, &model.Contact{})
}

// ListContacts returns the contacts of the owner, newest first.
func (s *GormStore) ListContacts(ctx context.Context, owner string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := s.db.WithContext(ctx).
		Scopes(ownedBy(owner)).
		Order("created_at DESC").
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("could not select contacts: %w", err)
	}
	return contacts, nil
}

// InsertContact creates a contact for the owner. The id and both timestamps are assigned
// here.
func (s *GormStore) InsertContact(ctx context.Context, owner string, fields model.Fields) (model.Contact, error) {
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
	if err := s.db.WithContext(ctx).Create(&contact).Error; err != nil {
		return model.Contact{}, fmt.Errorf("could not insert contact: %w", err)
	}
	return contact, nil
}

// UpdateContact replaces name, email, phone and address of the owner's contact and
// returns the full contact after the update.
func (s *GormStore) UpdateContact(ctx context.Context, owner string, id string, fields model.Fields) (model.Contact, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Contact{}).
		Scopes(ownedBy(owner)).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":       fields.Name,
			"email":      fields.Email,
			"phone":      fields.Phone,
			"address":    fields.Address,
			"updated_at": s.now(),
		})
	if result.Error != nil {
		return model.Contact{}, fmt.Errorf("could not update contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.Contact{}, ErrNotFound
	}

	var contact model.Contact
	err := s.db.WithContext(ctx).Scopes(ownedBy(owner)).Where("id = ?", id).Take(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("could not select contact: %w", err)
	}
	return contact, nil
}

// DeleteContact removes the owner's contact with the given id.
func (s *GormStore) DeleteContact(ctx context.Context, owner string, id string) error {
	result := s.db.WithContext(ctx).Scopes(ownedBy(owner)).Where("id = ?", id).Delete(&model.Contact{})
	if result.Error != nil {
		return fmt.Errorf("could not delete contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertUser creates an account. A second account with the same email fails with
// ErrDuplicate.
func (s *GormStore) InsertUser(ctx context.Context, email string, passwordHash string) (model.User, error) {
	user := model.User{
		Id:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.User{}, ErrDuplicate
		}
		return model.User{}, fmt.Errorf("could not insert user: %w", err)
	}
	return user, nil
}

// FindUserByEmail returns the account with the given email.
func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("could not select user: %w", err)
	}
	return user, nil
}

// Ping checks that the database is reachable.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
