package sheet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvBody = "No;Team;No Tiket\n1;TEAM_A;IN1\n"

var fixedNow = time.Date(2024, time.July, 1, 8, 0, 0, 0, time.UTC)

func newTestFetcher(url string) *Fetcher {
	return New(url,
		WithRetry(3, time.Millisecond, 2*time.Millisecond),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func TestFetch(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get(CacheBustParam)
		assert.Equal(t, "abc", r.URL.Query().Get("gid"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	text, err := newTestFetcher(srv.URL + "/export?gid=abc").Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, csvBody, text)
	assert.Equal(t, "1719820800000", query)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	text, err := newTestFetcher(srv.URL).Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, csvBody, text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).Fetch(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).Fetch(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRejectsHTML(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("\n<!DOCTYPE html><html><body>Sign in</body></html>"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).Fetch(context.Background())

	assert.ErrorIs(t, err, ErrNotCSV)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchBodySizeLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	testCases := []struct {
		name  string
		limit int64
		err   error
	}{
		{name: "Exactly at limit", limit: int64(len(csvBody))},
		{name: "One byte over", limit: int64(len(csvBody)) - 1, err: ErrTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls.Store(0)
			f := New(srv.URL,
				WithRetry(3, time.Millisecond, 2*time.Millisecond),
				WithMaxBodySize(tc.limit))

			text, err := f.Fetch(context.Background())

			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.Empty(t, text)
				assert.Equal(t, int32(1), calls.Load())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, csvBody, text)
		})
	}
}

func TestFetchInvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com/sheet.csv", "://bad"} {
		_, err := newTestFetcher(u).Fetch(context.Background())
		assert.Error(t, err, u)
	}
}

func TestFetchHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(srv.URL, WithRetry(5, time.Hour, time.Hour))
	_, err := f.Fetch(ctx)

	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name     string
		body     []byte
		expected string
		err      error
	}{
		{name: "Plain", body: []byte(csvBody), expected: csvBody},
		{name: "Empty", body: []byte{}, expected: ""},
		{name: "UTF-16 LE", body: []byte{0xFF, 0xFE, 'N', 0, 'o', 0, ';', 0, 'A', 0}, expected: "No;A"},
		{name: "UTF-16 BE", body: []byte{0xFE, 0xFF, 0, 'N', 0, 'o'}, expected: "No"},
		{name: "HTML", body: []byte("<html><head></head></html>"), err: ErrNotCSV},
		{name: "Doctype lower case", body: []byte("  <!doctype html>"), err: ErrNotCSV},
		{name: "NUL bytes", body: []byte("No;Team\x00\x01"), err: ErrBinaryPayload},
		{name: "Invalid UTF-8", body: []byte{'N', 'o', 0xC3, 0x28}, err: ErrBinaryPayload},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.body)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRetry(t *testing.T) {
	boom := errors.New("boom")

	t.Run("Stops on success", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 5, time.Millisecond, time.Millisecond, func() error {
			calls++
			if calls == 2 {
				return nil
			}
			return boom
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("Returns last error", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, time.Millisecond, func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})

	t.Run("Permanent stops and unwraps", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, time.Millisecond, func() error {
			calls++
			return Permanent(boom)
		})
		assert.Equal(t, boom, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("Zero attempts still calls once", func(t *testing.T) {
		calls := 0
		_ = Retry(context.Background(), 0, 0, 0, func() error {
			calls++
			return boom
		})
		assert.Equal(t, 1, calls)
	})
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
