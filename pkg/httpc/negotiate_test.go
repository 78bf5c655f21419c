package httpc

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTextual(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html; charset=utf-8", true},
		{"text/plain", true},
		{"TEXT/CSV", true},
		{"application/xml", true},
		{"text/xml", true},
		{"application/xhtml+xml", true},
		{"application/rss+xml; charset=utf-8", true},
		{"application/json", false},
		{"image/png", false},
		{"application/octet-stream", false},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, isTextual(tt.contentType))
		})
	}
}

func TestIsXMLType(t *testing.T) {
	assert.True(t, isXMLType("application/atom+xml"))
	assert.True(t, isXMLType("text/xml;charset=UTF-8"))
	assert.False(t, isXMLType("text/html"))
}

func TestResolveCharset(t *testing.T) {
	meta := []byte(`<html><head><meta charset="iso-8859-1"></head><body></body></html>`)
	equiv := []byte(`<html><head><meta http-equiv="Content-Type" content="text/html; charset=windows-1252"></head></html>`)

	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        string
	}{
		{"header wins", "text/html; charset=utf-8", meta, "UTF-8"},
		{"meta charset", "text/html", meta, "ISO-8859-1"},
		{"http-equiv", "text/html", equiv, "WINDOWS-1252"},
		{"no content type", "", meta, "ISO-8859-1"},
		{"xml prolog", "application/xml", []byte(`<?xml version="1.0" encoding="ISO-8859-1"?><a/>`), "ISO-8859-1"},
		{"fallback", "text/html", []byte("<p>plain</p>"), "UTF-8"},
		{"unknown header charset", "text/html; charset=bogus", []byte("<p>x</p>"), "UTF-8"},
		{"binary not sniffed", "image/png", meta, "UTF-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveCharset(tt.contentType, tt.body))
		})
	}
}

func TestSniffContentType(t *testing.T) {
	assert.Empty(t, sniffContentType(nil))
	assert.True(t, strings.HasPrefix(sniffContentType([]byte("<html><body>hi</body></html>")), "text/html"))
}

func encodedResponse(encoding string, body []byte) *http.Response {
	h := http.Header{}
	if encoding != "" {
		h.Set("Content-Encoding", encoding)
	}
	return &http.Response{Header: h, Body: io.NopCloser(bytes.NewReader(body))}
}

func TestDecodedBody(t *testing.T) {
	plain := []byte(strings.Repeat("duck soup ", 100))

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(plain)
	require.NoError(t, gw.Close())

	var zl bytes.Buffer
	zw := zlib.NewWriter(&zl)
	_, _ = zw.Write(plain)
	require.NoError(t, zw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write(plain)
	require.NoError(t, bw.Close())

	zenc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zs := zenc.EncodeAll(plain, nil)
	require.NoError(t, zenc.Close())

	tests := []struct {
		encoding string
		body     []byte
	}{
		{"", plain},
		{"identity", plain},
		{"gzip", gz.Bytes()},
		{"deflate", zl.Bytes()},
		{"br", br.Bytes()},
		{"zstd", zs},
	}
	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			r, err := decodedBody(encodedResponse(tt.encoding, tt.body))
			require.NoError(t, err)
			defer r.Close()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, plain, got)
		})
	}
}

func TestDecodedBody_EmptyGzip(t *testing.T) {
	r, err := decodedBody(encodedResponse("gzip", nil))
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadBody_Cap(t *testing.T) {
	src := bytes.Repeat([]byte("x"), 2000000)

	got, err := readBody(bytes.NewReader(src), 1048576)
	require.NoError(t, err)
	assert.Len(t, got, 1048576)

	got, err = readBody(bytes.NewReader(src), 0)
	require.NoError(t, err)
	assert.Len(t, got, 2000000)
}
