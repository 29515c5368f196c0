package email

import (
	"fmt"
	"net/mail"
	"strings"
)

// Validate checks the required fields and address syntax of e and returns one
// human-readable problem per violation. A nil result means e is well formed.
func Validate(e *Email) []string {
	if e == nil {
		return []string{"email is required"}
	}

	var problems []string

	if e.From == nil {
		problems = append(problems, "from is required")
	} else if msg := checkAddress(e.From); msg != "" {
		problems = append(problems, "from: "+msg)
	}

	if len(e.To) == 0 {
		problems = append(problems, "to must contain at least one contact")
	}
	problems = append(problems, checkList("to", e.To)...)
	problems = append(problems, checkList("replyTo", e.ReplyTo)...)
	problems = append(problems, checkList("cc", e.Cc)...)
	problems = append(problems, checkList("bcc", e.Bcc)...)

	if strings.TrimSpace(e.Subject) == "" {
		problems = append(problems, "subject is required")
	}

	return problems
}

func checkList(field string, list ContactList) []string {
	var problems []string
	for i, c := range list {
		if msg := checkAddress(c); msg != "" {
			problems = append(problems, fmt.Sprintf("%s[%d]: %s", field, i, msg))
		}
	}
	return problems
}

func checkAddress(c Contact) string {
	addr := strings.TrimSpace(Address(c))
	if addr == "" {
		return "address is required"
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Sprintf("invalid address %q", addr)
	}
	return ""
}
