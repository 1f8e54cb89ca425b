// Package storetest provides an in-memory store for tests of the packages above the store.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
	"gitlab.com/dirk.krummacker/contacthub/internal/store"
)

// Operation names used by Calls, Fail and Before.
const (
	OpList       = "list"
	OpInsert     = "insert"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpInsertUser = "insert-user"
	OpFindUser   = "find-user"
	OpPing       = "ping"
)

// Memory implements store.Store in memory. Like a database driver, it fails operations
// whose context is done. Every operation ticks a clock by one second,
// so contacts created later are always newer.
type Memory struct {
	// Before, if set, is called at the start of every operation, outside the lock.
	Before func(op string)

	mu       sync.Mutex
	clock    time.Time
	contacts map[string]model.Contact
	users    map[string]model.User
	calls    map[string]int
	fail     map[string]error
	closed   bool
}

var _ store.Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		clock:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		contacts: make(map[string]model.Contact),
		users:    make(map[string]model.User),
		calls:    make(map[string]int),
		fail:     make(map[string]error),
	}
}

// Fail makes every following call of op return err. A nil err heals the operation.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls returns how often op was called.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Contacts returns every stored contact of the owner, newest first.
func (m *Memory) Contacts(owner string) []model.Contact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(owner)
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// enter runs the hook, counts the call and returns the context's error or the injected
// one, if any. On success the lock is held and the caller must release it.
func (m *Memory) enter(ctx context.Context, op string) error {
	if m.Before != nil {
		m.Before(op)
	}
	m.mu.Lock()
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.fail[op]; err != nil {
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Memory) listLocked(owner string) []model.Contact {
	list := []model.Contact{}
	for _, c := range m.contacts {
		if c.Owner == owner {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

func (m *Memory) ListContacts(ctx context.Context, owner string) ([]model.Contact, error) {
	if err := m.enter(ctx, OpList); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	return m.listLocked(owner), nil
}

func (m *Memory) InsertContact(ctx context.Context, owner string, fields model.Fields) (model.Contact, error) {
	if err := m.enter(ctx, OpInsert); err != nil {
		return model.Contact{}, err
	}
	defer m.mu.Unlock()
	now := m.tick()
	contact := model.Contact{
		Id:        uuid.NewString(),
		Owner:     owner,
		Name:      fields.Name,
		Email:     fields.Email,
		Phone:     fields.Phone,
		Address:   fields.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.contacts[contact.Id] = contact
	return contact, nil
}

func (m *Memory) UpdateContact(ctx context.Context, owner string, id string, fields model.Fields) (model.Contact, error) {
	if err := m.enter(ctx, OpUpdate); err != nil {
		return model.Contact{}, err
	}
	defer m.mu.Unlock()
	contact, ok := m.contacts[id]
	if !ok || contact.Owner != owner {
		return model.Contact{}, store.ErrNotFound
	}
	contact.Name = fields.Name
	contact.Email = fields.Email
	contact.Phone = fields.Phone
	contact.Address = fields.Address
	contact.UpdatedAt = m.tick()
	m.contacts[id] = contact
	return contact, nil
}

func (m *Memory) DeleteContact(ctx context.Context, owner string, id string) error {
	if err := m.enter(ctx, OpDelete); err != nil {
		return err
	}
	defer m.mu.Unlock()
	contact, ok := m.contacts[id]
	if !ok || contact.Owner != owner {
		return store.ErrNotFound
	}
	delete(m.contacts, id)
	return nil
}

func (m *Memory) InsertUser(ctx context.Context, email string, passwordHash string) (model.User, error) {
	if err := m.enter(ctx, OpInsertUser); err != nil {
		return model.User{}, err
	}
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return model.User{}, store.ErrDuplicate
	}
	user := model.User{Id: uuid.NewString(), Email: email, PasswordHash: passwordHash, CreatedAt: m.tick()}
	m.users[email] = user
	return user, nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	if err := m.enter(ctx, OpFindUser); err != nil {
		return model.User{}, err
	}
	defer m.mu.Unlock()
	user, ok := m.users[email]
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	if err := m.enter(ctx, OpPing); err != nil {
		return err
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
