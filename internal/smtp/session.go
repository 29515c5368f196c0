package smtp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/mailchannels-relay/internal/archive"
	"github.com/sungwon/mailchannels-relay/internal/auth"
	"github.com/sungwon/mailchannels-relay/internal/delivery"
	"github.com/sungwon/mailchannels-relay/internal/email"
	"github.com/sungwon/mailchannels-relay/internal/mailchannels"
	"github.com/sungwon/mailchannels-relay/internal/metrics"
	"github.com/sungwon/mailchannels-relay/internal/mimeparse"
)

// SMTP message outcomes recorded in SMTPMessagesTotal.
const (
	resultRelayed  = "relayed"
	resultRejected = "rejected"
	resultDeferred = "deferred"
	resultInvalid  = "invalid"
)

var (
	errAuthRequired = &gosmtp.SMTPError{
		Code:         530,
		EnhancedCode: gosmtp.EnhancedCode{5, 7, 0},
		Message:      "Authentication required",
	}
	errAuthFailed = &gosmtp.SMTPError{
		Code:         535,
		EnhancedCode: gosmtp.EnhancedCode{5, 7, 8},
		Message:      "Authentication failed",
	}
	errAuthUnsupported = &gosmtp.SMTPError{
		Code:         504,
		EnhancedCode: gosmtp.EnhancedCode{5, 7, 4},
		Message:      "Unrecognized authentication mechanism",
	}
)

// Session handles a single SMTP connection and implements the go-smtp
// Session and AuthSession interfaces. Each message is relayed synchronously
// during DATA, so the client sees the provider's verdict.
type Session struct {
	ctx           context.Context
	log           zerolog.Logger
	backend       *Backend
	client        string
	authenticated bool
	sender        string
	recipients    []string
}

// AuthMechanisms advertises SASL PLAIN.
func (s *Session) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

// Auth handles SMTP AUTH. The username is the client name and the password
// is its API key.
func (s *Session) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain {
		return nil, errAuthUnsupported
	}
	return sasl.NewPlainServer(func(identity, username, password string) error {
		return s.authPlain(username, password)
	}), nil
}

func (s *Session) authPlain(username, password string) error {
	if s.backend.keys == nil || !s.backend.keys.Enabled() {
		metrics.SMTPAuthAttemptsTotal.WithLabelValues("failure").Inc()
		return errAuthUnsupported
	}

	name, err := s.backend.keys.Lookup(s.ctx, password)
	if err != nil || name != username {
		metrics.SMTPAuthAttemptsTotal.WithLabelValues("failure").Inc()
		s.log.Warn().Str("username", username).Msg("auth failed")
		return errAuthFailed
	}

	s.client = name
	s.authenticated = true
	metrics.SMTPAuthAttemptsTotal.WithLabelValues("success").Inc()
	s.log = s.log.With().Str("client", name).Logger()
	s.log.Info().Msg("auth successful")
	return nil
}

// Mail handles the MAIL FROM command.
func (s *Session) Mail(from string, opts *gosmtp.MailOptions) error {
	if !s.authenticated {
		return errAuthRequired
	}

	addr, ok := parseEnvelopeAddress(from)
	if !ok {
		s.log.Warn().Str("from", from).Msg("invalid sender address format")
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 7},
			Message:      "Invalid sender address",
		}
	}

	domain := domainFromEmail(addr)
	if !domainAllowed(s.backend.allowedDomains, domain) {
		s.log.Warn().
			Str("from", addr).
			Str("domain", domain).
			Msg("sender domain not allowed")
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "Sender domain not allowed",
		}
	}

	s.sender = addr
	s.log.Debug().Str("from", s.sender).Msg("MAIL FROM accepted")
	return nil
}

// Rcpt handles the RCPT TO command.
func (s *Session) Rcpt(to string, opts *gosmtp.RcptOptions) error {
	if !s.authenticated {
		return errAuthRequired
	}

	addr, ok := parseEnvelopeAddress(to)
	if !ok {
		s.log.Warn().Str("to", to).Msg("invalid recipient address format")
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "Invalid recipient address",
		}
	}

	s.recipients = append(s.recipients, addr)
	s.log.Debug().Str("to", addr).Msg("RCPT TO accepted")
	return nil
}

// Data reads the message, converts it to a generic email and relays it.
// Message bodies are never logged.
func (s *Session) Data(r io.Reader) error {
	if !s.authenticated {
		return errAuthRequired
	}
	if len(s.recipients) == 0 {
		return &gosmtp.SMTPError{
			Code:         503,
			EnhancedCode: gosmtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		s.log.Error().Err(err).Msg("failed to read message data")
		return &gosmtp.SMTPError{
			Code:         451,
			EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
			Message:      "Error reading message",
		}
	}

	msg, err := mimeparse.Parse(buf.Bytes())
	if err != nil {
		metrics.SMTPMessagesTotal.WithLabelValues(resultInvalid).Inc()
		s.log.Warn().Err(err).Msg("unparseable message")
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}
	if len(msg.Extra) > 0 {
		metrics.SMTPMessagesTotal.WithLabelValues(resultInvalid).Inc()
		s.log.Warn().Int("extra_parts", len(msg.Extra)).Msg("message has attachments")
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
			Message:      "Attachments are not supported",
		}
	}

	e, err := buildEmail(s.sender, s.recipients, msg)
	if err == nil {
		if problems := email.Validate(e); len(problems) > 0 {
			err = errors.New(problems[0])
		}
	}
	if err != nil {
		metrics.SMTPMessagesTotal.WithLabelValues(resultInvalid).Inc()
		s.log.Warn().Err(err).Msg("message rejected before relay")
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
			Message:      "Invalid message: " + err.Error(),
		}
	}

	messageID := uuid.New()
	s.archiveRaw(messageID, buf.Bytes())

	_, err = s.backend.delivery.DeliverMessage(s.ctx, &delivery.Request{
		MessageID: messageID,
		Email:     e,
		Client:    s.client,
		Source:    "smtp",
	})
	if err != nil {
		return s.deliveryFailure(err)
	}

	metrics.SMTPMessagesTotal.WithLabelValues(resultRelayed).Inc()
	s.log.Info().
		Str("from", s.sender).
		Int("recipient_count", len(s.recipients)).
		Msg("message relayed")
	return nil
}

// archiveRaw stores the raw message before relay. A failed write is logged and
// does not block delivery.
func (s *Session) archiveRaw(messageID uuid.UUID, raw []byte) {
	if s.backend.archive == nil {
		return
	}
	key := archive.Key(messageID, time.Now())
	if err := s.backend.archive.Put(s.ctx, key, raw); err != nil {
		s.log.Warn().Err(err).Stringer("message_id", messageID).Msg("failed to archive message")
		return
	}
	s.log.Debug().Str("archive_key", key).Msg("message archived")
}

// deliveryFailure maps a delivery error onto an SMTP reply: permanent
// provider rejections are 554, everything else is a 451 so the client retries.
func (s *Session) deliveryFailure(err error) error {
	if errors.Is(err, auth.ErrRateLimited) {
		metrics.SMTPMessagesTotal.WithLabelValues(resultDeferred).Inc()
		return &gosmtp.SMTPError{
			Code:         451,
			EnhancedCode: gosmtp.EnhancedCode{4, 7, 1},
			Message:      "Send rate limit exceeded, try again later",
		}
	}
	if mailchannels.IsPermanent(err) {
		metrics.SMTPMessagesTotal.WithLabelValues(resultRejected).Inc()
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 0, 0},
			Message:      err.Error(),
		}
	}

	metrics.SMTPMessagesTotal.WithLabelValues(resultDeferred).Inc()
	msg := "Temporary delivery failure"
	if mailchannels.IsDeliveryError(err) {
		msg = err.Error()
	}
	return &gosmtp.SMTPError{
		Code:         451,
		EnhancedCode: gosmtp.EnhancedCode{4, 4, 0},
		Message:      msg,
	}
}

// Reset is called between messages in the same session. It clears the sender
// and recipients but preserves the authentication state.
func (s *Session) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Logout is called when the client disconnects.
func (s *Session) Logout() error {
	s.backend.active.Add(-1)
	metrics.SMTPActiveSessions.Dec()
	s.log.Info().Msg("session closed")
	return nil
}
