// Package view keeps the list of contacts that a user is looking at: the full set fetched
// from the store, the search query, the filtered set derived from both, and the layout.
package view

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"gitlab.com/dirk.krummacker/contacthub/internal/model"
)

// Empty states of the list.
const (
	NoMatches  = "No contacts found matching your search"
	NoContacts = "No contacts yet. Add your first contact!"
)

// Mode is the layout of the list. It has no effect on the data.
type Mode string

const (
	ModeCard  Mode = "card"
	ModeTable Mode = "table"
)

// ParseMode returns the mode with the given name.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case ModeCard, ModeTable:
		return Mode(name), nil
	default:
		return "", fmt.Errorf("unknown view mode %q", name)
	}
}

// Filter returns the contacts whose name or email contains the query, ignoring case, in
// their original order. A blank query matches every contact.
func Filter(set []model.Contact, query string) []model.Contact {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(set)
	}
	var filtered []model.Contact
	for _, c := range set {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Email), q) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// ListView holds the state of a contact list. The filtered set is derived again whenever
// the contacts or the query change, so readers never see a stale result. It is safe for
// concurrent use.
type ListView struct {
	mu       sync.RWMutex
	all      []model.Contact
	filtered []model.Contact
	query    string
	mode     Mode
}

// New returns an empty list in card mode.
func New() *ListView {
	return &ListView{mode: ModeCard}
}

// SetContacts replaces the full set.
func (v *ListView) SetContacts(contacts []model.Contact) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.all = slices.Clone(contacts)
	v.filtered = Filter(v.all, v.query)
}

// SetQuery changes the search query.
func (v *ListView) SetQuery(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = query
	v.filtered = Filter(v.all, v.query)
}

// Remove drops the contact with the given id and reports whether it was present. No other
// contact is touched.
func (v *ListView) Remove(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := slices.IndexFunc(v.all, func(c model.Contact) bool { return c.Id == id })
	if i < 0 {
		return false
	}
	v.all = slices.Delete(slices.Clone(v.all), i, i+1)
	v.filtered = Filter(v.all, v.query)
	return true
}

// SetMode switches the layout.
func (v *ListView) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
	return nil
}

// Snapshot is a consistent copy of the list state.
type Snapshot struct {
	Mode       Mode
	Query      string
	Total      int
	Contacts   []model.Contact
	EmptyState string
}

// Snapshot returns the current state, with the filtered contacts.
func (v *ListView) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Snapshot{
		Mode:       v.mode,
		Query:      v.query,
		Total:      len(v.all),
		Contacts:   slices.Clone(v.filtered),
		EmptyState: emptyState(v.filtered, v.query),
	}
}

// Filtered returns the contacts to display.
func (v *ListView) Filtered() []model.Contact {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.filtered)
}

// EmptyState returns the message to show instead of the list, or "" if there is
// something to show.
func (v *ListView) EmptyState() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return emptyState(v.filtered, v.query)
}

func emptyState(filtered []model.Contact, query string) string {
	switch {
	case len(filtered) > 0:
		return ""
	case strings.TrimSpace(query) != "":
		return NoMatches
	default:
		return NoContacts
	}
}
