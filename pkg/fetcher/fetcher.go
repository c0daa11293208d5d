package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"followexport/pkg/errors"
	"followexport/pkg/logger"
)

// DefaultMediaType is used when neither the response nor the URL suffix names a type
const DefaultMediaType = "application/octet-stream"

var suffixMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Resource is the outcome of one fetch. OK is false on any failure and the
// other fields are then empty.
type Resource struct {
	Encoded   string
	MediaType string
	OK        bool
}

// Doer is the subset of *http.Client used by the fetcher
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client
type Options struct {
	Timeout   time.Duration
	Referer   string
	UserAgent string
}

// Client fetches binary resources and encodes them as data URIs
type Client struct {
	httpClient Doer
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a fetcher with the identification headers the origin expects
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	headers := map[string]string{
		"Referer":    "https://weibo.com/",
		"User-Agent": "Mozilla/5.0",
	}
	if opts.Referer != "" {
		headers["Referer"] = opts.Referer
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		headers:    headers,
		logger:     log,
	}
}

// WithDoer swaps the underlying HTTP client
func (c *Client) WithDoer(d Doer) *Client {
	c.httpClient = d
	return c
}

// Fetch downloads rawURL and returns it as a self-describing data URI.
// It never returns an error; failures are logged and reported through OK.
func (c *Client) Fetch(ctx context.Context, rawURL string) Resource {
	if rawURL == "" {
		return Resource{}
	}

	data, mediaType, err := c.get(ctx, rawURL)
	if err != nil {
		c.logger.WarnWithFields("resource fetch failed", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		return Resource{}
	}

	c.logger.DebugWithFields("resource fetched", map[string]interface{}{
		"url":        rawURL,
		"size":       len(data),
		"media_type": mediaType,
	})

	return Resource{
		Encoded:   fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data)),
		MediaType: mediaType,
		OK:        true,
	}
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrorTypeTransport, "failed to build request", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrorTypeTransport, "request failed", err)
	}
	defer resp.Body.Close()

	if !errors.IsSuccessStatusCode(resp.StatusCode) {
		return nil, "", &errors.Error{
			Type:    errors.ErrorTypeStatus,
			Message: "unexpected response status",
			Code:    resp.StatusCode,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrorTypeDecode, "failed to read body", err)
	}

	return data, normalizeMediaType(resp.Header.Get("Content-Type"), rawURL), nil
}

// normalizeMediaType lowercases a declared image type and keeps its parameters.
// A missing, malformed or non-image declaration falls back to the URL suffix so
// every fetched resource is embeddable.
func normalizeMediaType(declared, rawURL string) string {
	if declared == "" {
		return MediaTypeFromURL(rawURL)
	}
	mt, params, err := mime.ParseMediaType(declared)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return MediaTypeFromURL(rawURL)
	}
	if formatted := mime.FormatMediaType(mt, params); formatted != "" {
		return formatted
	}
	return mt
}

// MediaTypeFromURL guesses a media type from the URL path suffix, ignoring the query
func MediaTypeFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	if mt, ok := suffixMediaTypes[strings.ToLower(path.Ext(p))]; ok {
		return mt
	}
	return DefaultMediaType
}
