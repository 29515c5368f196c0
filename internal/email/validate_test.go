package email

import (
	"strings"
	"testing"
)

func TestValidate_Valid(t *testing.T) {
	e := &Email{
		From:    Named("f@x.com", "F"),
		To:      ContactList{PlainAddress("t@x.com")},
		Cc:      ContactList{},
		Subject: "S",
	}

	if problems := Validate(e); problems != nil {
		t.Errorf("expected no problems, got %v", problems)
	}
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name  string
		email *Email
		want  string
	}{
		{"nil email", nil, "email is required"},
		{"missing from", &Email{To: ContactList{PlainAddress("t@x.com")}, Subject: "S"}, "from is required"},
		{"bad from", &Email{From: PlainAddress("nope"), To: ContactList{PlainAddress("t@x.com")}, Subject: "S"}, "from: invalid address"},
		{"empty to", &Email{From: PlainAddress("f@x.com"), To: ContactList{}, Subject: "S"}, "to must contain at least one contact"},
		{"bad cc", &Email{
			From:    PlainAddress("f@x.com"),
			To:      ContactList{PlainAddress("t@x.com")},
			Cc:      ContactList{PlainAddress("ok@x.com"), NamedAddress{}},
			Subject: "S",
		}, "cc[1]: address is required"},
		{"missing subject", &Email{From: PlainAddress("f@x.com"), To: ContactList{PlainAddress("t@x.com")}, Subject: "  "}, "subject is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := Validate(tt.email)
			found := false
			for _, p := range problems {
				if strings.HasPrefix(p, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected problem %q, got %v", tt.want, problems)
			}
		})
	}
}
