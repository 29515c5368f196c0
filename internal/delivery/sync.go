package delivery

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/mailchannels-relay/internal/email"
	"github.com/sungwon/mailchannels-relay/internal/logger"
	"github.com/sungwon/mailchannels-relay/internal/mailchannels"
	"github.com/sungwon/mailchannels-relay/internal/metrics"
	"github.com/sungwon/mailchannels-relay/internal/storage"
)

// SyncService delivers messages inline: one send attempt per request, no
// retries.
type SyncService struct {
	sender   Sender
	recorder Recorder
	log      zerolog.Logger
}

// NewSyncService creates a SyncService that delivers through sender. A nil
// recorder disables the delivery log.
func NewSyncService(sender Sender, recorder Recorder, log zerolog.Logger) *SyncService {
	return &SyncService{
		sender:   sender,
		recorder: recorder,
		log:      log,
	}
}

// DeliverMessage sends the message and records the outcome. The error from
// the sender is returned unchanged so callers can inspect it with errors.As.
func (s *SyncService) DeliverMessage(ctx context.Context, req *Request) (*Result, error) {
	messageID := req.MessageID
	if messageID == uuid.Nil {
		messageID = uuid.New()
	}

	log := s.log.With().
		Stringer("message_id", messageID).
		Str("provider", s.sender.Name()).
		Logger()
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		log = log.With().Str("correlation_id", id).Logger()
	}
	if req.Client != "" {
		log = log.With().Str("client", req.Client).Logger()
	}
	if req.Source != "" {
		log = log.With().Str("source", req.Source).Logger()
	}

	e := req.Email
	metrics.MailChannelsRecipients.Observe(float64(len(e.To) + len(e.Cc) + len(e.Bcc)))

	start := time.Now()
	err := s.sender.Send(ctx, e)
	elapsed := time.Since(start)
	metrics.MailChannelsSendDuration.Observe(elapsed.Seconds())

	s.record(ctx, log, messageID, req, elapsed, err)

	if err != nil {
		var de *mailchannels.DeliveryError
		if errors.As(err, &de) {
			metrics.MailChannelsSendTotal.WithLabelValues(metrics.ResultRejected).Inc()
			metrics.MailChannelsRejectionsTotal.
				WithLabelValues(strconv.Itoa(de.StatusCode), strconv.FormatBool(de.Permanent)).
				Inc()
			log.Error().
				Int("status_code", de.StatusCode).
				Bool("permanent", de.Permanent).
				Str("response", de.Body).
				Msg("message rejected")
		} else {
			metrics.MailChannelsSendTotal.WithLabelValues(metrics.ResultTransportError).Inc()
			log.Error().Err(err).Msg("send request failed")
		}
		return nil, err
	}

	metrics.MailChannelsSendTotal.WithLabelValues(metrics.ResultSent).Inc()
	log.Info().
		Int("recipients", len(e.To)).
		Str("subject", e.Subject).
		Msg("message delivered")

	return &Result{
		MessageID: messageID,
		Provider:  s.sender.Name(),
		Timestamp: time.Now(),
	}, nil
}

// record writes the attempt to the delivery log. Failures are logged and
// never change the delivery outcome.
func (s *SyncService) record(ctx context.Context, log zerolog.Logger, messageID uuid.UUID, req *Request, elapsed time.Duration, sendErr error) {
	if s.recorder == nil {
		return
	}

	e := req.Email
	entry := &storage.DeliveryLog{
		MessageID:  messageID,
		Client:     req.Client,
		Source:     req.Source,
		Provider:   s.sender.Name(),
		Sender:     email.Address(e.From),
		Recipients: len(e.To) + len(e.Cc) + len(e.Bcc),
		Subject:    e.Subject,
		Status:     storage.StatusSent,
		DurationMS: elapsed.Milliseconds(),
	}
	if sendErr != nil {
		entry.Status = storage.StatusFailed
		entry.Error = sendErr.Error()
		var de *mailchannels.DeliveryError
		if errors.As(sendErr, &de) {
			entry.Status = storage.StatusRejected
			entry.StatusCode = de.StatusCode
			entry.Permanent = de.Permanent
		}
	}

	// The request context may already be canceled; the log entry should
	// still be written.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.InsertDeliveryLog(recCtx, entry); err != nil {
		log.Error().Err(err).Msg("failed to record delivery log")
	}
}
