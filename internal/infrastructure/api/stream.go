package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"shopify-hubspot-sync/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// statusStreamHandler pushes Connect status snapshots as server-sent events.
// The current status is sent first, then every change until the client leaves.
func statusStreamHandler(connects ConnectManager, status StatusSubscriber, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
			return
		}

		ctx := r.Context()
		c, err := connects.Get(ctx, userIDFrom(ctx), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		// Subscribe before the first frame so no change is missed in between
		ch := status.Subscribe(ctx, c.ID)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		if err := writeEvent(w, c.Status()); err != nil {
			return
		}
		flusher.Flush()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ch.Done:
				return
			case s, ok := <-ch.Events:
				if !ok {
					return
				}
				if err := writeEvent(w, s); err != nil {
					logger.Debug().Err(err).Str("connect_id", c.ID).Msg("Status stream closed")
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, s *domain.ConnectStatus) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
