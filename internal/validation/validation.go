// Package validation checks contact form input before anything is sent to the store.
package validation

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/contacthub/internal/model"
	pub "gitlab.com/dirk.krummacker/contacthub/pkg/model"
)

// Length limits of the contact fields, counted in characters after trimming.
const (
	MaxNameLength    = 100
	MaxEmailLength   = 255
	MaxPhoneLength   = 20
	MaxAddressLength = 500
)

// rule is a single validator tag together with the message shown when it fails.
type rule struct {
	tag     string
	message string
}

// field couples a trimmed input value with the rules it must satisfy, in order.
type field struct {
	value string
	rules []rule
}

var validate = validator.New()

var (
	nameRules = []rule{
		{"required", "Name is required"},
		{"max=" + strconv.Itoa(MaxNameLength), "Name must be less than 100 characters"},
	}
	emailRules = []rule{
		{"email", "Invalid email address"},
		{"max=" + strconv.Itoa(MaxEmailLength), "Email must be less than 255 characters"},
	}
	phoneRules = []rule{
		{"required", "Phone is required"},
		{"max=" + strconv.Itoa(MaxPhoneLength), "Phone must be less than 20 characters"},
	}
	addressRules = []rule{
		{"max=" + strconv.Itoa(MaxAddressLength), "Address must be less than 500 characters"},
	}
)

// Validate trims the values of the form and checks them against the contact rules. On
// success it returns the normalized fields and a nil slice. Otherwise it returns every
// failure message, ordered by field (name, email, phone, address) and by rule within a
// field. A blank or missing address normalizes to nil.
func Validate(form pub.ContactForm) (model.Fields, []string) {
	fields := model.Fields{
		Name:  strings.TrimSpace(form.Name),
		Email: strings.TrimSpace(form.Email),
		Phone: strings.TrimSpace(form.Phone),
	}
	address := ""
	if form.Address != nil {
		address = strings.TrimSpace(*form.Address)
	}
	if address != "" {
		fields.Address = &address
	}

	var messages []string
	for _, f := range []field{
		{fields.Name, nameRules},
		{fields.Email, emailRules},
		{fields.Phone, phoneRules},
		{address, addressRules},
	} {
		messages = append(messages, check(f)...)
	}
	if len(messages) > 0 {
		return model.Fields{}, messages
	}
	return fields, nil
}

// check runs every rule of a field and collects the messages of the failing ones.
func check(f field) []string {
	var messages []string
	for _, r := range f.rules {
		if err := validate.Var(f.value, r.tag); err != nil {
			messages = append(messages, r.message)
		}
	}
	return messages
}
