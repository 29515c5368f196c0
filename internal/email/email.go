// Package email defines the generic, application-facing email model accepted by
// the relay and decoded from API requests.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Contact is either a PlainAddress or a NamedAddress.
type Contact interface {
	isContact()
}

// PlainAddress is a bare address such as "alice@example.com".
type PlainAddress string

func (PlainAddress) isContact() {}

// NamedAddress is an address with an optional display name.
type NamedAddress struct {
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

func (NamedAddress) isContact() {}

// Named returns a NamedAddress with the display name set.
func Named(address, name string) NamedAddress {
	return NamedAddress{Email: address, Name: &name}
}

// Address returns the address carried by c, or "" for a nil contact.
func Address(c Contact) string {
	switch v := c.(type) {
	case PlainAddress:
		return string(v)
	case NamedAddress:
		return v.Email
	case *NamedAddress:
		if v != nil {
			return v.Email
		}
	}
	return ""
}

// ContactList holds zero or more contacts. A nil list means the field was
// absent; a non-nil empty list means it was present but empty.
type ContactList []Contact

// UnmarshalJSON accepts a single contact or an array of contacts.
// null and "" decode to an absent (nil) list.
func (l *ContactList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*l = nil
		return nil
	}

	if len(data) > 0 && data[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return fmt.Errorf("email: decode contact list: %w", err)
		}
		list := make(ContactList, 0, len(raws))
		for i, raw := range raws {
			c, err := decodeContact(raw)
			if err != nil {
				return fmt.Errorf("email: contact %d: %w", i, err)
			}
			list = append(list, c)
		}
		*l = list
		return nil
	}

	c, err := decodeContact(data)
	if err != nil {
		return err
	}
	*l = ContactList{c}
	return nil
}

func decodeContact(raw json.RawMessage) (Contact, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("email: empty contact")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("email: decode address: %w", err)
		}
		return PlainAddress(s), nil
	case '{':
		var n NamedAddress
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("email: decode named address: %w", err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("email: contact must be a string or an object, got %s", raw)
}

// Email is the generic message description handed to a delivery backend.
type Email struct {
	From    Contact     `json:"from"`
	To      ContactList `json:"to"`
	ReplyTo ContactList `json:"replyTo,omitzero"`
	Cc      ContactList `json:"cc,omitzero"`
	Bcc     ContactList `json:"bcc,omitzero"`
	Subject string      `json:"subject"`
	Text    string      `json:"text,omitempty"`
	HTML    string      `json:"html,omitempty"`
}

// UnmarshalJSON decodes the polymorphic from field alongside the rest.
func (e *Email) UnmarshalJSON(data []byte) error {
	var raw struct {
		From    json.RawMessage `json:"from"`
		To      ContactList     `json:"to"`
		ReplyTo ContactList     `json:"replyTo"`
		Cc      ContactList     `json:"cc"`
		Bcc     ContactList     `json:"bcc"`
		Subject string          `json:"subject"`
		Text    string          `json:"text"`
		HTML    string          `json:"html"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var from Contact
	if len(raw.From) > 0 && !bytes.Equal(bytes.TrimSpace(raw.From), []byte("null")) {
		c, err := decodeContact(raw.From)
		if err != nil {
			return fmt.Errorf("email: from: %w", err)
		}
		from = c
	}

	*e = Email{
		From:    from,
		To:      raw.To,
		ReplyTo: raw.ReplyTo,
		Cc:      raw.Cc,
		Bcc:     raw.Bcc,
		Subject: raw.Subject,
		Text:    raw.Text,
		HTML:    raw.HTML,
	}
	return nil
}
