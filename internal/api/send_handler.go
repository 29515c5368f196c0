package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sungwon/mailchannels-relay/internal/auth"
	"github.com/sungwon/mailchannels-relay/internal/delivery"
	"github.com/sungwon/mailchannels-relay/internal/email"
	"github.com/sungwon/mailchannels-relay/internal/logger"
	"github.com/sungwon/mailchannels-relay/internal/mailchannels"
)

const defaultMaxBodyBytes = 10 << 20

type sendResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Provider  string `json:"provider"`
}

type rejectionResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Permanent  bool   `json:"permanent"`
}

// SendHandler handles POST /api/v1/send.
// The body is a generic email. The response is 202 once the provider has
// accepted it, 429 when the client is over its send limit, 502 when the
// provider rejected it and 503 when the provider could not be reached.
func SendHandler(svc delivery.Service, maxBodyBytes int64) http.HandlerFunc {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		var e email.Email
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if problems := email.Validate(&e); len(problems) > 0 {
			writeValidationError(w, problems)
			return
		}

		ctx := r.Context()
		result, err := svc.DeliverMessage(ctx, &delivery.Request{
			Email:  &e,
			Client: auth.ClientFromContext(ctx),
			Source: "api",
		})
		if err != nil {
			if errors.Is(err, auth.ErrRateLimited) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "send rate limit exceeded")
				return
			}
			var de *mailchannels.DeliveryError
			if errors.As(err, &de) {
				writeJSON(w, http.StatusBadGateway, rejectionResponse{
					Error:      de.Error(),
					StatusCode: de.StatusCode,
					Permanent:  de.Permanent,
				})
				return
			}
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("mail provider unreachable")
			w.Header().Set("Retry-After", "30")
			writeError(w, http.StatusServiceUnavailable, "mail provider unreachable")
			return
		}

		writeJSON(w, http.StatusAccepted, sendResponse{
			Status:    "sent",
			MessageID: result.MessageID.String(),
			Provider:  result.Provider,
		})
	}
}
