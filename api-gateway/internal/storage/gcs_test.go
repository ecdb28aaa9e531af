package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type uploadRecorder struct {
	mu     sync.Mutex
	bodies []string
	paths  []string
}

func (u *uploadRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	u.bodies = append(u.bodies, string(body))
	u.paths = append(u.paths, r.URL.String())
	u.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"bucket":"qr-bucket","name":"qr-codes/L1.png","contentType":"image/png"}`))
}

func TestQRStore_Put(t *testing.T) {
	rec := &uploadRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	defer client.Close()

	store := NewQRStore(client, "qr-bucket", "")
	url, err := store.Put(context.Background(), "L1", []byte("\x89PNG fake"))
	require.NoError(t, err)

	assert.Equal(t, "https://storage.googleapis.com/qr-bucket/qr-codes/L1.png", url)
	require.Len(t, rec.bodies, 1)
	assert.Contains(t, rec.paths[0], "/b/qr-bucket/o")
	assert.True(t, strings.Contains(rec.bodies[0], "image/png"))
	assert.True(t, strings.Contains(rec.bodies[0], "\x89PNG fake"))
}

func TestQRStore_URL(t *testing.T) {
	s := &QRStore{name: "b", publicURL: "https://cdn.example"}
	assert.Equal(t, "https://cdn.example/b/qr-codes/abc.png", s.URL("abc"))
	assert.Equal(t, "qr-codes/abc.png", ObjectPath("abc"))
}
