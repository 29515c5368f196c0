package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sungwon/mailchannels-relay/internal/auth"
	"github.com/sungwon/mailchannels-relay/internal/logger"
	"github.com/sungwon/mailchannels-relay/internal/storage"
)

// DeliveryLogLister reads the delivery log. *storage.DB implements it.
type DeliveryLogLister interface {
	ListDeliveryLogs(ctx context.Context, p storage.ListDeliveryLogsParams) ([]storage.DeliveryLog, error)
}

// ListDeliveriesHandler handles GET /api/v1/deliveries.
// Authenticated callers only see their own entries; the client query
// parameter is honored only when authentication is disabled.
func ListDeliveriesHandler(logs DeliveryLogLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		offset := 0

		if l := r.URL.Query().Get("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 {
				limit = v
			}
		}
		if o := r.URL.Query().Get("offset"); o != "" {
			if v, err := strconv.Atoi(o); err == nil && v >= 0 {
				offset = v
			}
		}

		// Cap limit at 100
		if limit > 100 {
			limit = 100
		}

		client := auth.ClientFromContext(r.Context())
		if client == "" {
			client = r.URL.Query().Get("client")
		}

		entries, err := logs.ListDeliveryLogs(r.Context(), storage.ListDeliveryLogsParams{
			Client: client,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("failed to list delivery logs")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if entries == nil {
			entries = []storage.DeliveryLog{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
