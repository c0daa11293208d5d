package fetcher

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followexport/pkg/logger"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestFetchSendsIdentificationHeaders(t *testing.T) {
	var gotReferer, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	c := NewClient(Options{Timeout: time.Second}, logger.NewNopLogger())
	res := c.Fetch(context.Background(), server.URL+"/avatar.png")

	require.True(t, res.OK)
	assert.Equal(t, "https://weibo.com/", gotReferer)
	assert.Equal(t, "Mozilla/5.0", gotUA)
	assert.Equal(t, "image/png", res.MediaType)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("png-bytes")), res.Encoded)
}

func TestFetchCustomHeaders(t *testing.T) {
	var gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write([]byte("gif"))
	}))
	defer server.Close()

	c := NewClient(Options{Timeout: time.Second, Referer: "https://example.org/"}, logger.NewNopLogger())
	res := c.Fetch(context.Background(), server.URL)

	require.True(t, res.OK)
	assert.Equal(t, "https://example.org/", gotReferer)
}

func TestFetchMediaTypeFallsBackToSuffix(t *testing.T) {
	c := NewClient(Options{}, logger.NewNopLogger()).WithDoer(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("jpeg")),
		}, nil
	}))

	res := c.Fetch(context.Background(), "https://tvax1.sinaimg.cn/crop.0.0.180.180/abc.JPG?KID=imgbed&Expires=1")
	require.True(t, res.OK)
	assert.Equal(t, "image/jpeg", res.MediaType)
	assert.True(t, strings.HasPrefix(res.Encoded, "data:image/jpeg;base64,"))
}

func TestFetchNormalizesDeclaredMediaType(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		url      string
		expected string
	}{
		{"mixed case image", "Image/JPEG", "https://img.example/a", "image/jpeg"},
		{"image with parameters", "image/webp; Charset=binary", "https://img.example/a", "image/webp; charset=binary"},
		{"text type uses suffix", "text/plain", "https://img.example/a.png", "image/png"},
		{"vendor octet stream uses suffix", "binary/octet-stream", "https://img.example/a.gif?v=2", "image/gif"},
		{"unknown without suffix", "binary/octet-stream", "https://img.example/a", DefaultMediaType},
		{"malformed header", "image/;;", "https://img.example/a.jpg", "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(Options{}, logger.NewNopLogger()).WithDoer(roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusOK,
					Header:     http.Header{"Content-Type": []string{tt.declared}},
					Body:       io.NopCloser(strings.NewReader("ABC")),
				}, nil
			}))

			res := c.Fetch(context.Background(), tt.url)
			require.True(t, res.OK)
			assert.Equal(t, tt.expected, res.MediaType)
			assert.Equal(t, "data:"+tt.expected+";base64,QUJD", res.Encoded)
		})
	}
}

func TestFetchFailures(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer notFound.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	tests := []struct {
		name string
		url  string
	}{
		{name: "non-2xx status", url: notFound.URL + "/a.png"},
		{name: "unreachable host", url: closedURL + "/a.png"},
		{name: "timeout", url: slow.URL + "/a.png"},
		{name: "malformed url", url: "://nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewTestLogger()
			c := NewClient(Options{Timeout: 100 * time.Millisecond}, log)
			res := c.Fetch(context.Background(), tt.url)

			assert.False(t, res.OK)
			assert.Empty(t, res.Encoded)
			assert.Empty(t, res.MediaType)
			assert.True(t, log.HasMessage("resource fetch failed"))
		})
	}
}

func TestFetchEmptyURLSkipsNetwork(t *testing.T) {
	var calls int32
	c := NewClient(Options{}, logger.NewNopLogger()).WithDoer(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, io.EOF
	}))

	res := c.Fetch(context.Background(), "")
	assert.False(t, res.OK)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestMediaTypeFromURL(t *testing.T) {
	tests := map[string]string{
		"https://x/a.jpg":          "image/jpeg",
		"https://x/a.jpeg?w=1":     "image/jpeg",
		"https://x/a.PNG":          "image/png",
		"https://x/a.webp#frag":    "image/webp",
		"https://x/a.gif":          "image/gif",
		"https://x/a.bmp":          DefaultMediaType,
		"https://x/noext":          DefaultMediaType,
		"https://x/dir.png/avatar": DefaultMediaType,
	}

	for in, want := range tests {
		assert.Equal(t, want, MediaTypeFromURL(in), in)
	}
}
