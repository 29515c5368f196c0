package mailchannels

import "github.com/sungwon/mailchannels-relay/internal/email"

// Contact is the canonical address form sent on the wire.
type Contact struct {
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

// NormalizeContact converts a generic contact into its canonical form.
// Addresses are passed through unchecked.
func NormalizeContact(c email.Contact) Contact {
	switch v := c.(type) {
	case email.PlainAddress:
		return Contact{Email: string(v)}
	case email.NamedAddress:
		return Contact{Email: v.Email, Name: v.Name}
	case *email.NamedAddress:
		if v != nil {
			return Contact{Email: v.Email, Name: v.Name}
		}
	}
	return Contact{}
}

// NormalizeContacts converts every contact in list, preserving order and
// cardinality. An absent or empty list yields an empty, non-nil slice.
func NormalizeContacts(list email.ContactList) []Contact {
	out := make([]Contact, 0, len(list))
	for _, c := range list {
		out = append(out, NormalizeContact(c))
	}
	return out
}
