package mailchannels

import (
	"errors"
	"fmt"
	"strings"
)

// DeliveryError is returned when MailChannels answers with a non-2xx status.
// Transport failures are never reported as a DeliveryError.
type DeliveryError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// StatusText is the reason phrase of the response status line.
	StatusText string
	// Body is the raw response body, kept for diagnostics.
	Body string
	// Permanent indicates the request will not succeed on retry.
	Permanent bool
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("Error sending email: %d %s", e.StatusCode, e.StatusText)
}

// IsDeliveryError reports whether err is, or wraps, a DeliveryError.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// IsPermanent returns true if err is a delivery rejection that should not be
// retried.
func IsPermanent(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Permanent
	}
	return false
}

// IsTransient returns true if err may succeed on retry. Transport failures
// and unknown errors count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return !de.Permanent
	}
	return true
}

// classifyStatus creates a DeliveryError for a non-2xx response. It returns
// nil for a 2xx status.
func classifyStatus(statusCode int, statusText, body string) *DeliveryError {
	de := &DeliveryError{
		StatusCode: statusCode,
		StatusText: statusText,
		Body:       body,
	}

	switch {
	case statusCode >= 200 && statusCode <= 299:
		return nil

	case statusCode == 400:
		de.Permanent = containsAny(body, permanentRequestPatterns)

	case statusCode == 401, statusCode == 403, statusCode == 404:
		de.Permanent = true

	case statusCode == 429:
		de.Permanent = false

	case statusCode >= 500:
		de.Permanent = containsAny(body, permanentServerPatterns)

	default:
		de.Permanent = statusCode >= 400 && statusCode < 500
	}

	return de
}

var permanentRequestPatterns = []string{
	"invalid recipient",
	"invalid email",
	"does not exist",
	"mailbox not found",
	"recipient rejected",
	"bad request",
	"validation error",
	"invalid address",
	"domain lockdown",
}

var permanentServerPatterns = []string{
	"invalid api key",
	"authentication failed",
	"account suspended",
	"account disabled",
	"unauthorized",
}

func containsAny(body string, patterns []string) bool {
	lower := strings.ToLower(body)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
