// Package auth issues and checks user sessions and guards the contact list view against
// callers without a session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gitlab.com/dirk.krummacker/contacthub/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at sign up.
const MinPasswordLength = 8

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSignUp      = errors.New("a valid email and a password of at least 8 characters are required")
	ErrNoSession          = errors.New("no session")
)

var validate = validator.New()

// Session is an authenticated user session. Consumers only rely on its presence and on
// UserID.
type Session struct {
	ID        string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// EventKind tells why a session ended.
type EventKind int

const (
	EventSignedOut EventKind = iota
	EventExpired
)

// Event notifies subscribers that the sessions of a user changed.
type Event struct {
	Kind   EventKind
	UserID string
}

// SessionSource looks up sessions and notifies about session changes. The guard and the
// middleware depend on this instead of the full provider.
type SessionSource interface {
	Current(token string) (Session, bool)
	Subscribe(userID string) (<-chan Event, func())
}

// claims is the payload of a session token.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Provider signs users up and in, issues session tokens and keeps track of the sessions
// that are still active. A token is only accepted while its session is registered here,
// so signing out invalidates it immediately.
type Provider struct {
	users  store.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu          sync.Mutex
	sessions    map[string]map[string]time.Time // user id -> session id -> expiry
	subscribers map[string]map[int]chan Event   // user id -> subscription id -> channel
	nextSub     int
}

// NewProvider returns a provider that stores accounts in users and signs tokens with
// secret. Sessions last for ttl.
func NewProvider(users store.UserStore, secret []byte, ttl time.Duration) *Provider {
	return &Provider{
		users:       users,
		secret:      secret,
		ttl:         ttl,
		now:         time.Now,
		sessions:    make(map[string]map[string]time.Time),
		subscribers: make(map[string]map[int]chan Event),
	}
}

// normalizeEmail trims and lower-cases an email address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account and starts a session for it.
func (p *Provider) SignUp(ctx context.Context, email string, password string) (string, Session, error) {
	email = normalizeEmail(email)
	if validate.Var(email, "required,email,max=255") != nil || len(password) < MinPasswordLength {
		return "", Session{}, ErrInvalidSignUp
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", Session{}, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := p.users.InsertUser(ctx, email, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return "", Session{}, ErrEmailTaken
	}
	if err != nil {
		return "", Session{}, fmt.Errorf("failed to create user: %w", err)
	}
	return p.issue(user.Id, user.Email)
}

// SignIn checks the credentials and starts a session.
func (p *Provider) SignIn(ctx context.Context, email string, password string) (string, Session, error) {
	user, err := p.users.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", Session{}, fmt.Errorf("failed to find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", Session{}, ErrInvalidCredentials
	}
	return p.issue(user.Id, user.Email)
}

// issue registers a new session and returns its signed token.
func (p *Provider) issue(userID string, email string) (string, Session, error) {
	issued := p.now()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		ExpiresAt: issued.Add(p.ttl).Truncate(time.Second),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		Email: email,
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("failed to sign token: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions[userID] == nil {
		p.sessions[userID] = make(map[string]time.Time)
	}
	p.sessions[userID][session.ID] = session.ExpiresAt
	return signed, session, nil
}

// parse verifies the signature and expiry of a token and returns its session.
func (p *Provider) parse(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Session{}, false
	}
	return Session{
		ID:        c.ID,
		UserID:    c.Subject,
		Email:     c.Email,
		ExpiresAt: c.ExpiresAt.Time,
	}, true
}

// Current returns the session of the token if it is valid, unexpired and not signed out.
// Expired sessions are dropped and reported to the subscribers of their user.
func (p *Provider) Current(token string) (Session, bool) {
	session, ok := p.parse(token)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expireLocked()
	if !ok {
		return Session{}, false
	}
	if _, active := p.sessions[session.UserID][session.ID]; !active {
		return Session{}, false
	}
	return session, true
}

// expireLocked removes expired sessions. The caller holds p.mu.
func (p *Provider) expireLocked() {
	now := p.now()
	for userID, sessions := range p.sessions {
		expired := false
		for id, expiry := range sessions {
			if !now.Before(expiry) {
				delete(sessions, id)
				expired = true
			}
		}
		if len(sessions) == 0 {
			delete(p.sessions, userID)
		}
		if expired {
			p.publishLocked(Event{Kind: EventExpired, UserID: userID})
		}
	}
}

// SignOut ends every session of the token's user, on all devices, and notifies the
// subscribers of that user.
func (p *Provider) SignOut(token string) error {
	session, ok := p.parse(token)
	if !ok {
		return ErrNoSession
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, active := p.sessions[session.UserID][session.ID]; !active {
		return ErrNoSession
	}
	delete(p.sessions, session.UserID)
	p.publishLocked(Event{Kind: EventSignedOut, UserID: session.UserID})
	return nil
}

// Subscribe returns a channel that receives the session events of the user, and a
// function that ends the subscription and closes the channel. Events are dropped for a
// subscriber that does not keep up.
func (p *Provider) Subscribe(userID string) (<-chan Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	ch := make(chan Event, 1)
	if p.subscribers[userID] == nil {
		p.subscribers[userID] = make(map[int]chan Event)
	}
	p.subscribers[userID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subscribers[userID], id)
			if len(p.subscribers[userID]) == 0 {
				delete(p.subscribers, userID)
			}
			close(ch)
		})
	}
}

// publishLocked sends an event to the subscribers of its user. The caller holds p.mu.
func (p *Provider) publishLocked(event Event) {
	for _, ch := range p.subscribers[event.UserID] {
		select {
		case ch <- event:
		default:
		}
	}
}

