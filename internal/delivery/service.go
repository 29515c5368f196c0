package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sungwon/mailchannels-relay/internal/email"
	"github.com/sungwon/mailchannels-relay/internal/storage"
)

// Service delivers a generic email through an ESP.
type Service interface {
	DeliverMessage(ctx context.Context, req *Request) (*Result, error)
}

// Sender is the subset of mailchannels.Client a Service depends on.
type Sender interface {
	Send(ctx context.Context, e *email.Email) error
	Name() string
}

// Recorder stores delivery attempts. *storage.DB implements it.
type Recorder interface {
	InsertDeliveryLog(ctx context.Context, l *storage.DeliveryLog) error
}

// Request contains the data needed to deliver a message.
type Request struct {
	// MessageID identifies the message in logs. A zero value is replaced
	// with a fresh UUID.
	MessageID uuid.UUID
	Email     *email.Email

	// Client names the authenticated caller, if any.
	Client string
	// Source is the ingress that received the message: "api", "smtp" or "cli".
	Source string
}

// Result describes an accepted message.
type Result struct {
	MessageID uuid.UUID
	Provider  string
	Timestamp time.Time
}
