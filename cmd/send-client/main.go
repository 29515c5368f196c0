// Package main provides a standalone CLI tool for sending a single email
// through the MailChannels API using the relay's configuration.
//
// Usage:
//
//	send-client --from sender@example.com --to recipient@example.com --subject "Test" --text "Hello"
//	send-client --from "Ops <ops@example.com>" --to a@example.com --to b@example.com --html "<b>hi</b>"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/sungwon/mailchannels-relay/internal/config"
	"github.com/sungwon/mailchannels-relay/internal/email"
	"github.com/sungwon/mailchannels-relay/internal/mailchannels"
)

type options struct {
	configDir string
	from      string
	to        stringSlice
	cc        stringSlice
	bcc       stringSlice
	replyTo   stringSlice
	subject   string
	text      string
	html      string
	dryRun    bool
}

// stringSlice implements flag.Value for repeatable address flags.
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	opts := parseFlags()

	if opts.from == "" {
		fmt.Fprintln(os.Stderr, "error: --from is required")
		flag.Usage()
		os.Exit(2)
	}
	if len(opts.to) == 0 {
		fmt.Fprintln(os.Stderr, "error: at least one --to is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	client := mailchannels.NewClient(mailchannels.Config{
		Endpoint: cfg.MailChannels.Endpoint,
		DKIM: mailchannels.DKIMConfig{
			Domain:     cfg.DKIM.Domain,
			Selector:   cfg.DKIM.Selector,
			PrivateKey: cfg.DKIM.PrivateKey,
		},
	}, mailchannels.NewHTTPClient(cfg.MailChannels.Timeout))

	e := buildEmail(opts)
	if problems := email.Validate(e); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "invalid email: %s\n", p)
		}
		os.Exit(2)
	}

	if opts.dryRun {
		printPayload(client, e)
		return
	}

	fmt.Printf("MailChannels Send Client\n")
	fmt.Printf("  Endpoint: %s\n", cfg.MailChannels.Endpoint)
	fmt.Printf("  From:     %s\n", opts.from)
	fmt.Printf("  To:       %s\n", opts.to.String())
	fmt.Printf("  DKIM:     %v\n", client.Signing())
	fmt.Println()

	start := time.Now()
	err = client.Send(context.Background(), e)
	elapsed := time.Since(start)

	if err != nil {
		var de *mailchannels.DeliveryError
		if errors.As(err, &de) {
			fmt.Printf("FAIL (%s): %v\n", elapsed, err)
			if de.Body != "" {
				fmt.Printf("  Response: %s\n", de.Body)
			}
		} else {
			fmt.Printf("FAIL (%s): transport error: %v\n", elapsed, err)
		}
		os.Exit(1)
	}

	fmt.Printf("OK   (%s)\n", elapsed)
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.configDir, "config", "config", "Directory containing config.yaml")
	flag.StringVar(&opts.from, "from", "", `Sender address, optionally "Name <addr>"`)
	flag.Var(&opts.to, "to", "Recipient address (can be specified multiple times)")
	flag.Var(&opts.cc, "cc", "Cc address (can be specified multiple times)")
	flag.Var(&opts.bcc, "bcc", "Bcc address (can be specified multiple times)")
	flag.Var(&opts.replyTo, "reply-to", "Reply-To address; only the first is used")
	flag.StringVar(&opts.subject, "subject", "Test Email", "Email subject")
	flag.StringVar(&opts.text, "text", "", "Plain text body")
	flag.StringVar(&opts.html, "html", "", "HTML body")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Print the request payload instead of sending it")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: send-client [options]\n\n")
		fmt.Fprintf(os.Stderr, "Sends one email through the MailChannels API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return opts
}

func buildEmail(opts options) *email.Email {
	e := &email.Email{
		From:    parseContact(opts.from),
		To:      parseContacts(opts.to),
		Subject: opts.subject,
		Text:    opts.text,
		HTML:    opts.html,
	}
	if len(opts.replyTo) > 0 {
		e.ReplyTo = parseContacts(opts.replyTo)
	}
	if len(opts.cc) > 0 {
		e.Cc = parseContacts(opts.cc)
	}
	if len(opts.bcc) > 0 {
		e.Bcc = parseContacts(opts.bcc)
	}
	return e
}

// parseContact accepts "addr" or "Name <addr>".
func parseContact(s string) email.Contact {
	if addr, err := mail.ParseAddress(s); err == nil && addr.Name != "" {
		return email.Named(addr.Address, addr.Name)
	}
	return email.PlainAddress(s)
}

func parseContacts(values []string) email.ContactList {
	list := make(email.ContactList, 0, len(values))
	for _, v := range values {
		list = append(list, parseContact(v))
	}
	return list
}
