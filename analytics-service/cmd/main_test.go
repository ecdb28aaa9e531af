package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(ctx context.Context, data []byte) error

func (f handlerFunc) Handle(ctx context.Context, data []byte) error { return f(ctx, data) }

func TestSetup(t *testing.T) {
	t.Setenv("CTP_PROJECT_KEY", "demo")
	t.Setenv("CTP_CLIENT_ID", "id")
	t.Setenv("CTP_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	cfg, log, err := setup()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	t.Setenv("GOOGLE_CLOUD_PROJECT", "proj")
	cfg, _, err = setup()
	require.NoError(t, err)
	assert.Equal(t, "proj", cfg.GCP.ProjectID)
}

func TestRouter(t *testing.T) {
	var got []byte
	link := handlerFunc(func(_ context.Context, data []byte) error {
		got = data
		return nil
	})
	order := handlerFunc(func(context.Context, []byte) error {
		return errors.New("commerce unavailable")
	})
	r := newRouter(zerolog.Nop(), link, order)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	// "eyJhIjoxfQ==" is {"a":1}
	body := `{"message":{"data":"eyJhIjoxfQ==","messageId":"1"},"subscription":"s"}`
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pubsub/link-created", strings.NewReader(body)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, `{"a":1}`, string(got))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pubsub/order-created", strings.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
