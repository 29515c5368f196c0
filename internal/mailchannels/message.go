package mailchannels

import "github.com/sungwon/mailchannels-relay/internal/email"

const (
	contentTypeText = "text/plain"
	contentTypeHTML = "text/html"
)

// Message matches the MailChannels tx/v1/send JSON schema.
type Message struct {
	Personalizations []Personalization `json:"personalizations"`
	From             Contact           `json:"from"`
	ReplyTo          *Contact          `json:"reply_to,omitempty"`
	Subject          string            `json:"subject"`
	Content          []Content         `json:"content"`
}

// Personalization groups the recipients and DKIM parameters of a message.
// A nil Cc or Bcc is omitted from the JSON; an empty one is sent as [].
type Personalization struct {
	To             []Contact `json:"to"`
	Cc             []Contact `json:"cc,omitzero"`
	Bcc            []Contact `json:"bcc,omitzero"`
	DKIMDomain     string    `json:"dkim_domain,omitempty"`
	DKIMSelector   string    `json:"dkim_selector,omitempty"`
	DKIMPrivateKey string    `json:"dkim_private_key,omitempty"`
}

// Content is a single body part.
type Content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Transform builds the MailChannels request body for e. The result always
// carries exactly one personalization, and a text body precedes an HTML body.
func Transform(e *email.Email) *Message {
	p := Personalization{
		To: NormalizeContacts(e.To),
	}

	var replyTo *Contact
	if e.ReplyTo != nil {
		contacts := NormalizeContacts(e.ReplyTo)
		// Only one reply_to slot exists on the wire; extra entries are dropped.
		// A present but empty list still produces an empty-address contact.
		first := Contact{}
		if len(contacts) > 0 {
			first = contacts[0]
		}
		replyTo = &first
	}

	if e.Cc != nil {
		p.Cc = NormalizeContacts(e.Cc)
	}
	if e.Bcc != nil {
		p.Bcc = NormalizeContacts(e.Bcc)
	}

	content := make([]Content, 0, 2)
	if e.Text != "" {
		content = append(content, Content{Type: contentTypeText, Value: e.Text})
	}
	if e.HTML != "" {
		content = append(content, Content{Type: contentTypeHTML, Value: e.HTML})
	}

	return &Message{
		Personalizations: []Personalization{p},
		From:             NormalizeContact(e.From),
		ReplyTo:          replyTo,
		Subject:          e.Subject,
		Content:          content,
	}
}
