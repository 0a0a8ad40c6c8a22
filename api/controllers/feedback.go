package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/feedback"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func GetFeedback(feedbackReg FeedbackRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phase := currentPhase(feedbackReg, middleware.CartSessionFromContext(r.Context()))
		responses.WriteSuccess(w, feedbackResponse{Phase: phase, Busy: phase != feedback.PhaseIdle})
	}
}

// StreamFeedback pushes phase changes as server-sent events until the client
// disconnects or the controller is closed.
func StreamFeedback(feedbackReg FeedbackRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctrl := feedbackReg.Get(middleware.CartSessionFromContext(ctx))

		rc := http.NewResponseController(w)
		// Streams outlive the server write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		phases, unsubscribe := ctrl.Subscribe()
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		for {
			select {
			case <-ctx.Done():
				return
			case phase, ok := <-phases:
				if !ok {
					return
				}
				payload, err := json.Marshal(feedbackResponse{Phase: phase, Busy: phase != feedback.PhaseIdle})
				if err != nil {
					return
				}
				if _, err := fmt.Fprintf(w, "event: phase\ndata: %s\n\n", payload); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					if logg != nil {
						logg.Warn(ctx, "feedback stream flush failed")
					}
					return
				}
			}
		}
	}
}
