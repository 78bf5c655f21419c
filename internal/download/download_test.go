package download

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload_DoesNotFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/other", http.StatusFound)
	}))
	defer server.Close()

	d := InitDownload()
	defer d.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := d.RoundTrip(req, true)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/other", resp.Header.Get("Location"))
}

func TestDownload_NoTransparentDecompression(t *testing.T) {
	var acceptEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acceptEncoding = r.Header.Get("Accept-Encoding")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := InitDownload()
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := d.RoundTrip(req, true)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Empty(t, acceptEncoding)
	assert.Equal(t, "ok", string(body))
}

func TestDownload_TLSValidationToggle(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer server.Close()

	d := InitDownload()
	defer d.Close()

	// 自签名证书
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := d.RoundTrip(req, true)
	assert.Error(t, err)

	req, _ = http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := d.RoundTrip(req, false)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "secure", string(body))

	assert.Len(t, d.clients, 2)
	assert.NotSame(t, d.client(true), d.client(false))
	assert.Same(t, d.client(false), d.client(false))
}

func TestDownload_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	_, err := InitDownload().RoundTrip(req, true)
	assert.ErrorIs(t, err, context.Canceled)
}
