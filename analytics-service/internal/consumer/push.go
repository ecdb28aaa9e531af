package consumer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/cartlink/pkg/logger"
)

// PushEnvelope is the body Pub/Sub sends to push endpoints. Data arrives
// base64 encoded and is decoded by encoding/json into the byte slice.
type PushEnvelope struct {
	Message struct {
		Data        []byte            `json:"data"`
		MessageID   string            `json:"messageId"`
		Attributes  map[string]string `json:"attributes"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

// PushHandler adapts a Handler to a Pub/Sub push subscription. A 2xx acks the
// message; a 5xx makes Pub/Sub retry it.
func PushHandler(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var env PushEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			respondError(w, http.StatusBadRequest, "invalid push envelope", err.Error())
			return
		}
		log := logger.FromContext(ctx).With().
			Str("message_id", env.Message.MessageID).
			Str("subscription", env.Subscription).
			Logger()

		err := h.Handle(log.WithContext(ctx), env.Message.Data)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, ErrMalformed):
			log.Error().Err(err).Msg("dropping malformed message")
			w.WriteHeader(http.StatusNoContent)
		default:
			log.Error().Err(err).Msg("handler failed, message will be redelivered")
			respondError(w, http.StatusInternalServerError, "failed to process message", err.Error())
		}
	}
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message, Details: details, Code: status})
}
