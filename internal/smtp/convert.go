package smtp

import (
	"net/mail"
	"strings"

	"github.com/sungwon/mailchannels-relay/internal/email"
	"github.com/sungwon/mailchannels-relay/internal/mimeparse"
)

// buildEmail maps an SMTP envelope and its parsed message onto a generic
// email. Envelope recipients are sorted into to, cc and bcc by whether they
// appear in the To or Cc header. When none appear in To, the bcc recipients
// become the to list, or failing that the cc recipients.
func buildEmail(sender string, rcpts []string, msg *mimeparse.Message) (*email.Email, error) {
	from := email.Contact(email.PlainAddress(sender))
	fromHeader, err := msg.Addresses("From")
	if err != nil {
		return nil, err
	}
	if len(fromHeader) > 0 {
		from = contactFor(fromHeader[0])
	}

	toHeader, err := msg.Addresses("To")
	if err != nil {
		return nil, err
	}
	ccHeader, err := msg.Addresses("Cc")
	if err != nil {
		return nil, err
	}
	toSet := addressSet(toHeader)
	ccSet := addressSet(ccHeader)

	var to, cc, bcc email.ContactList
	for _, rcpt := range rcpts {
		key := strings.ToLower(rcpt)
		switch {
		case toSet[key] != nil:
			to = append(to, contactFor(toSet[key]))
		case ccSet[key] != nil:
			cc = append(cc, contactFor(ccSet[key]))
		default:
			bcc = append(bcc, email.PlainAddress(rcpt))
		}
	}
	if len(to) == 0 {
		to, bcc = bcc, nil
	}
	if len(to) == 0 {
		to, cc = cc, nil
	}

	e := &email.Email{
		From:    from,
		To:      to,
		Cc:      cc,
		Bcc:     bcc,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	}

	replyTo, err := msg.Addresses("Reply-To")
	if err != nil {
		return nil, err
	}
	for _, a := range replyTo {
		e.ReplyTo = append(e.ReplyTo, contactFor(a))
	}

	return e, nil
}

func addressSet(list []*mail.Address) map[string]*mail.Address {
	set := make(map[string]*mail.Address, len(list))
	for _, a := range list {
		set[strings.ToLower(a.Address)] = a
	}
	return set
}

func contactFor(a *mail.Address) email.Contact {
	if a.Name != "" {
		return email.Named(a.Address, a.Name)
	}
	return email.PlainAddress(a.Address)
}
