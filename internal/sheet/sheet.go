// Package sheet downloads the published spreadsheet export over HTTP.
package sheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
)

var (
	// ErrNotCSV is returned when the server answers with an HTML page, which
	// happens when the sheet is not published or the link is wrong.
	ErrNotCSV = errors.New("sheet: response is an HTML page, not CSV")

	// ErrBinaryPayload is returned for content that is not text.
	ErrBinaryPayload = errors.New("sheet: response is not text")

	// ErrTooLarge is returned when the export exceeds the body size limit.
	ErrTooLarge = errors.New("sheet: response too large")
)

// CacheBustParam is the query parameter carrying a timestamp so that
// intermediate caches never serve a stale export.
const CacheBustParam = "_cacheBust"

// MaxBodySize is the default bound on the size of a downloaded export.
const MaxBodySize = 32 << 20

// StatusError reports a non-2xx answer.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sheet: unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// Fetcher downloads one sheet export.
type Fetcher struct {
	url        string
	client     *http.Client
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
	maxBody    int64
	now        func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithRetry sets how many attempts a fetch makes and the wait between them.
func WithRetry(attempts int, backoff, maxBackoff time.Duration) Option {
	return func(f *Fetcher) {
		f.attempts = attempts
		f.backoff = backoff
		f.maxBackoff = maxBackoff
	}
}

// WithMaxBodySize sets the largest export accepted, in bytes.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithClock replaces time.Now as the source of cache-bust values.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// New returns a Fetcher for rawURL.
func New(rawURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		url:        rawURL,
		client:     NewHTTPClient(15 * time.Second),
		attempts:   3,
		backoff:    500 * time.Millisecond,
		maxBackoff: 5 * time.Second,
		maxBody:    MaxBodySize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the configured export address.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch downloads the export and returns it as UTF-8 text. Server errors and
// network failures are retried; client errors, HTML pages and binary content
// are not.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	target, err := cacheBust(f.url, f.now())
	if err != nil {
		return "", Permanent(err)
	}

	var text string
	attempt := 0
	err = Retry(ctx, f.attempts, f.backoff, f.maxBackoff, func() error {
		attempt++
		body, err := f.get(ctx, target)
		if err != nil {
			logging.Debug("Sheet fetch attempt failed", "attempt", attempt, "error", err)
			return err
		}
		text, err = Decode(body)
		return Permanent(err)
	})
	if err != nil {
		return "", fmt.Errorf("fetching sheet: %w", err)
	}
	return text, nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, Permanent(err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		serr := &StatusError{Code: resp.StatusCode}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, serr
		}
		return nil, Permanent(serr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBody {
		return nil, Permanent(fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBody))
	}
	return body, nil
}

// Decode turns a downloaded body into text. UTF-16 exports marked with a
// byte order mark are converted to UTF-8. HTML pages yield ErrNotCSV and
// content with NUL bytes or invalid UTF-8 yields ErrBinaryPayload.
func Decode(body []byte) (string, error) {
	if isUTF16(body) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBinaryPayload, err)
		}
		body = out
	}
	if bytes.IndexByte(body, 0) >= 0 || !utf8.Valid(body) {
		return "", ErrBinaryPayload
	}
	if looksLikeHTML(body) {
		return "", ErrNotCSV
	}
	return string(body), nil
}

func isUTF16(b []byte) bool {
	return len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF))
}

func looksLikeHTML(b []byte) bool {
	head := b
	if len(head) > 512 {
		head = head[:512]
	}
	s := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(string(head), "\ufeff")))
	return strings.HasPrefix(s, "<!doctype html") || strings.HasPrefix(s, "<html")
}

func cacheBust(rawURL string, now time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid sheet url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid sheet url %q: scheme must be http or https", rawURL)
	}
	q := u.Query()
	q.Set(CacheBustParam, strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
