package mailchannels

import (
	"testing"

	"github.com/sungwon/mailchannels-relay/internal/email"
)

func TestNormalizeContact_PlainAddress(t *testing.T) {
	c := NormalizeContact(email.PlainAddress("a@x.com"))

	if c.Email != "a@x.com" {
		t.Errorf("expected email a@x.com, got %q", c.Email)
	}
	if c.Name != nil {
		t.Errorf("expected no name, got %q", *c.Name)
	}
}

func TestNormalizeContact_NamedAddress(t *testing.T) {
	c := NormalizeContact(email.Named("a@x.com", "A"))

	if c.Email != "a@x.com" {
		t.Errorf("expected email a@x.com, got %q", c.Email)
	}
	if c.Name == nil || *c.Name != "A" {
		t.Errorf("expected name A, got %v", c.Name)
	}
}

func TestNormalizeContact_NamedAddressWithoutName(t *testing.T) {
	c := NormalizeContact(email.NamedAddress{Email: "a@x.com"})

	if c.Email != "a@x.com" {
		t.Errorf("expected email a@x.com, got %q", c.Email)
	}
	if c.Name != nil {
		t.Errorf("expected absent name, got %q", *c.Name)
	}
}

func TestNormalizeContact_PointerVariant(t *testing.T) {
	n := email.Named("p@x.com", "P")
	c := NormalizeContact(&n)

	if c.Email != "p@x.com" || c.Name == nil || *c.Name != "P" {
		t.Errorf("unexpected contact %+v", c)
	}
}

func TestNormalizeContact_MalformedAddressPassesThrough(t *testing.T) {
	c := NormalizeContact(email.PlainAddress("not an address"))

	if c.Email != "not an address" {
		t.Errorf("expected address passed through unchanged, got %q", c.Email)
	}
}

func TestNormalizeContacts_Cardinality(t *testing.T) {
	tests := []struct {
		name  string
		input email.ContactList
		want  []string
	}{
		{"absent", nil, []string{}},
		{"empty", email.ContactList{}, []string{}},
		{"single", email.ContactList{email.PlainAddress("a@x.com")}, []string{"a@x.com"}},
		{
			"mixed list keeps order",
			email.ContactList{
				email.PlainAddress("a@x.com"),
				email.Named("b@x.com", "B"),
				email.PlainAddress("c@x.com"),
			},
			[]string{"a@x.com", "b@x.com", "c@x.com"},
		},
		{
			"duplicates kept",
			email.ContactList{email.PlainAddress("a@x.com"), email.PlainAddress("a@x.com")},
			[]string{"a@x.com", "a@x.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeContacts(tt.input)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d contacts, got %d", len(tt.want), len(got))
			}
			for i, addr := range tt.want {
				if got[i].Email != addr {
					t.Errorf("contact %d: expected %s, got %s", i, addr, got[i].Email)
				}
			}
		})
	}
}
