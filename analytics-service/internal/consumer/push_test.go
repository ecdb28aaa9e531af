package consumer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type HandlerFunc func(ctx context.Context, data []byte) error

func (f HandlerFunc) Handle(ctx context.Context, data []byte) error { return f(ctx, data) }

func envelope(data string) []byte {
	encoded := base64.StdEncoding.EncodeToString([]byte(data))
	return []byte(`{"message":{"data":"` + encoded + `","messageId":"m-1"},"subscription":"projects/p/subscriptions/s"}`)
}

func TestPushHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           []byte
		handlerErr     error
		expectedStatus int
	}{
		{"ack", envelope(`{"a":1}`), nil, http.StatusNoContent},
		{"malformed message is acked", envelope(`x`), ErrMalformed, http.StatusNoContent},
		{"transient failure is retried", envelope(`{"a":1}`), errors.New("bigquery unavailable"), http.StatusInternalServerError},
		{"bad envelope", []byte(`nope`), nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []byte
			h := PushHandler(HandlerFunc(func(_ context.Context, data []byte) error {
				got = data
				return tt.handlerErr
			}))

			recorder := httptest.NewRecorder()
			h.ServeHTTP(recorder, httptest.NewRequest("POST", "/pubsub/link-created", bytes.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			if tt.expectedStatus != http.StatusBadRequest {
				assert.NotEmpty(t, got, "handler receives the decoded payload")
			}
		})
	}
}

func TestPushHandler_DecodesBase64(t *testing.T) {
	var got string
	h := PushHandler(HandlerFunc(func(_ context.Context, data []byte) error {
		got = string(data)
		return nil
	}))

	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, httptest.NewRequest("POST", "/", bytes.NewReader(envelope(`{"linkId":"abc"}`))))

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, `{"linkId":"abc"}`, got)
}
