package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
)

func contact(id, name, email string) model.Contact {
	return model.Contact{Id: id, Name: name, Email: email, Phone: "555"}
}

func ids(contacts []model.Contact) []string {
	result := []string{}
	for _, c := range contacts {
		result = append(result, c.Id)
	}
	return result
}

var sample = []model.Contact{
	contact("1", "Ana Gomez", "ana@x.com"),
	contact("2", "Bob", "bob@x.com"),
	contact("3", "Carla", "carla@ANAlytics.io"),
}

// TestFilter checks name and email matching, ignoring case.
func TestFilter(t *testing.T) {
	assert.Equal(t, sample, Filter(sample, ""))
	assert.Equal(t, sample, Filter(sample, "   "))
	assert.Equal(t, []string{"1", "3"}, ids(Filter(sample, "ana")))
	assert.Equal(t, []string{"1", "3"}, ids(Filter(sample, "ANA")))
	assert.Equal(t, []string{"2"}, ids(Filter(sample, "bob@")))
	assert.Empty(t, Filter(sample, "555"), "phone is not searched")
	assert.Empty(t, Filter(sample, "zoe"))
	assert.Empty(t, Filter(nil, "ana"))
}

// TestFilterScenario is the search for "ana" in a list of Ana Gomez and Bob.
func TestFilterScenario(t *testing.T) {
	set := []model.Contact{contact("1", "Ana Gomez", "a@x.com"), contact("2", "Bob", "b@x.com")}
	assert.Equal(t, []string{"1"}, ids(Filter(set, "ana")))
}

// TestFilterDoesNotShareMemory expects that changing the result leaves the input alone.
func TestFilterDoesNotShareMemory(t *testing.T) {
	set := []model.Contact{contact("1", "Ana", "a@x.com")}
	result := Filter(set, "")
	result[0].Name = "changed"
	assert.Equal(t, "Ana", set[0].Name)
}

// TestListViewRederives expects the filtered set to follow both the contacts and the query.
func TestListViewRederives(t *testing.T) {
	v := New()
	assert.Equal(t, NoContacts, v.EmptyState())

	v.SetContacts(sample)
	assert.Equal(t, []string{"1", "2", "3"}, ids(v.Filtered()))
	assert.Equal(t, "", v.EmptyState())

	v.SetQuery("ana")
	assert.Equal(t, []string{"1", "3"}, ids(v.Filtered()))

	v.SetContacts(sample[1:])
	assert.Equal(t, []string{"3"}, ids(v.Filtered()))

	v.SetQuery("zoe")
	assert.Empty(t, v.Filtered())
	assert.Equal(t, NoMatches, v.EmptyState())

	v.SetQuery("")
	assert.Equal(t, []string{"2", "3"}, ids(v.Filtered()))
}

// TestListViewRemove expects that exactly the given contact disappears.
func TestListViewRemove(t *testing.T) {
	v := New()
	v.SetContacts(sample)
	v.SetQuery("a")

	assert.True(t, v.Remove("3"))
	assert.Equal(t, []string{"1"}, ids(v.Filtered()))
	v.SetQuery("")
	assert.Equal(t, []string{"1", "2"}, ids(v.Filtered()))
	assert.False(t, v.Remove("3"))
	assert.Equal(t, []string{"1", "2"}, ids(v.Filtered()))

	// the slice handed to SetContacts is not modified
	assert.Equal(t, []string{"1", "2", "3"}, ids(sample))
}

// TestListViewMode expects the layout to change nothing but the mode.
func TestListViewMode(t *testing.T) {
	v := New()
	v.SetContacts(sample)
	v.SetQuery("bob")
	assert.Equal(t, ModeCard, v.Snapshot().Mode)

	require.NoError(t, v.SetMode(ModeTable))
	s := v.Snapshot()
	assert.Equal(t, ModeTable, s.Mode)
	assert.Equal(t, "bob", s.Query)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, []string{"2"}, ids(s.Contacts))

	assert.Error(t, v.SetMode("grid"))
	assert.Equal(t, ModeTable, v.Snapshot().Mode)

	mode, err := ParseMode("card")
	require.NoError(t, err)
	assert.Equal(t, ModeCard, mode)
	_, err = ParseMode("")
	assert.Error(t, err)
}
