package model

import "time"

// ContactForm is the request body for creating or updating a contact. The values are
// raw user input; the service trims and validates them.
type ContactForm struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address *string `json:"address,omitempty"`
}

// Contact is a contact as returned by the service.
type Contact struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credentials is the request body for signing up and signing in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned after a successful sign up or sign in.
type SessionResponse struct {
	Token     string    `json:"token"`
	UserId    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ContactList is the state of a user's contact list view.
type ContactList struct {
	Mode       string    `json:"mode"`
	Query      string    `json:"query"`
	Total      int       `json:"total"`
	Contacts   []Contact `json:"contacts"`
	EmptyState string    `json:"empty_state,omitempty"`
	Notices    []Notice  `json:"notices,omitempty"`
}

// Notice is a transient message for the user.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Message is the body of simple responses, mostly errors.
type Message struct {
	Message  string   `json:"message"`
	Messages []string `json:"messages,omitempty"`
}
