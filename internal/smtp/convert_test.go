package smtp

import (
	"testing"

	"github.com/sungwon/mailchannels-relay/internal/email"
	"github.com/sungwon/mailchannels-relay/internal/mimeparse"
)

func parseTestMessage(t *testing.T, raw string) *mimeparse.Message {
	t.Helper()
	msg, err := mimeparse.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("failed to parse test message: %v", err)
	}
	return msg
}

func addresses(list email.ContactList) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, email.Address(c))
	}
	return out
}

func TestBuildEmail_SortsRecipients(t *testing.T) {
	msg := parseTestMessage(t, "From: \"Ops\" <ops@example.com>\r\n"+
		"To: a@x.com\r\n"+
		"Cc: \"Bee\" <b@x.com>\r\n"+
		"Reply-To: help@example.com\r\n"+
		"Subject: Hi\r\n"+
		"\r\n"+
		"body")

	e, err := buildEmail("bounce@example.com", []string{"A@x.com", "b@x.com", "hidden@x.com"}, msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	from, ok := e.From.(email.NamedAddress)
	if !ok || from.Email != "ops@example.com" || *from.Name != "Ops" {
		t.Errorf("expected header From with name, got %#v", e.From)
	}
	if got := addresses(e.To); len(got) != 1 || got[0] != "a@x.com" {
		t.Errorf("unexpected to %v", got)
	}
	if got := addresses(e.Cc); len(got) != 1 || got[0] != "b@x.com" {
		t.Errorf("unexpected cc %v", got)
	}
	if got := addresses(e.Bcc); len(got) != 1 || got[0] != "hidden@x.com" {
		t.Errorf("unexpected bcc %v", got)
	}
	if got := addresses(e.ReplyTo); len(got) != 1 || got[0] != "help@example.com" {
		t.Errorf("unexpected reply-to %v", got)
	}
	if e.Subject != "Hi" || e.Text != "body" {
		t.Errorf("unexpected subject/body %q %q", e.Subject, e.Text)
	}
}

func TestBuildEmail_UndisclosedRecipients(t *testing.T) {
	msg := parseTestMessage(t, "Subject: Hi\r\n\r\nbody")

	e, err := buildEmail("sender@example.com", []string{"a@x.com", "b@x.com"}, msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.From != email.PlainAddress("sender@example.com") {
		t.Errorf("expected envelope sender as from, got %#v", e.From)
	}
	if got := addresses(e.To); len(got) != 2 {
		t.Errorf("expected envelope recipients promoted to to, got %v", got)
	}
	if e.Bcc != nil || e.Cc != nil || e.ReplyTo != nil {
		t.Errorf("expected absent optional lists, got cc=%v bcc=%v replyTo=%v", e.Cc, e.Bcc, e.ReplyTo)
	}
}

func TestBuildEmail_CcOnly(t *testing.T) {
	msg := parseTestMessage(t, "Cc: c@x.com\r\n\r\nbody")

	e, err := buildEmail("sender@example.com", []string{"c@x.com"}, msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := addresses(e.To); len(got) != 1 || got[0] != "c@x.com" {
		t.Errorf("expected cc recipient promoted to to, got %v", got)
	}
	if e.Cc != nil {
		t.Errorf("expected cc cleared, got %v", e.Cc)
	}
}

func TestBuildEmail_BadHeader(t *testing.T) {
	msg := parseTestMessage(t, "To: not an address\r\n\r\nbody")

	if _, err := buildEmail("sender@example.com", []string{"a@x.com"}, msg); err == nil {
		t.Error("expected error for malformed To header")
	}
}

func TestParseEnvelopeAddress(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"user@example.com", "user@example.com", true},
		{"<user@example.com>", "user@example.com", true},
		{"Name <user@example.com>", "user@example.com", true},
		{"not-an-address", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseEnvelopeAddress(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseEnvelopeAddress(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDomainAllowed(t *testing.T) {
	if !domainAllowed(nil, "any.com") {
		t.Error("empty list should allow every domain")
	}
	if !domainAllowed([]string{"Example.com"}, "example.COM") {
		t.Error("domain match should be case-insensitive")
	}
	if domainAllowed([]string{"example.com"}, "other.com") {
		t.Error("unexpected match for other.com")
	}
	if domainFromEmail("nodomain") != "" {
		t.Error("expected empty domain for address without @")
	}
}
