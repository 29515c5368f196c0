package smtp

import (
	"net/mail"
	"strings"
)

// parseEnvelopeAddress parses a MAIL FROM or RCPT TO argument, accepting
// both "<addr>" and a bare addr.
func parseEnvelopeAddress(s string) (string, bool) {
	addr, err := mail.ParseAddress(s)
	if err == nil {
		return addr.Address, true
	}
	addr, err = mail.ParseAddress("<" + s + ">")
	if err != nil {
		return "", false
	}
	return addr.Address, true
}

// domainFromEmail extracts the domain part from an email address.
func domainFromEmail(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// domainAllowed reports whether domain is in allowed. An empty list allows
// every domain.
func domainAllowed(allowed []string, domain string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, d := range allowed {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}
