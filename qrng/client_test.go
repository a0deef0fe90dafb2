package qrng

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/entropool/qrng/qrngtest"
)

func TestClientFetch(t *testing.T) {
	t.Parallel()

	srv := qrngtest.NewServer()
	defer srv.Close()

	c, err := NewClient(Options{URL: srv.URL})
	require.NoError(t, err)
	defer c.Close()

	data, err := c.FetchBytes(context.Background(), 1024)
	require.NoError(t, err)
	assert.Len(t, data, 1024)

	units, err := c.FetchHex(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, units, 10)
	for _, u := range units {
		assert.Len(t, u, 2)
	}

	// exactly one request per call
	assert.Equal(t, 2, srv.Requests())
}

func TestClientRequest(t *testing.T) {
	t.Parallel()

	srv := qrngtest.NewServer()
	defer srv.Close()

	seen := make(chan *http.Request, 1)
	srv.SetHandler(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		_, _ = w.Write([]byte(`{"type":"uint8","length":2,"size":1,"data":[1,2],"success":true}`))
	})

	c, err := NewClient(Options{URL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	_, err = c.FetchBytes(context.Background(), 2)
	require.NoError(t, err)

	r := <-seen
	assert.Equal(t, "secret", r.Header.Get("x-api-key"))
	assert.Equal(t, "length=2&size=1&type=uint8", r.URL.RawQuery)
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	srv := qrngtest.NewServer()
	defer srv.Close()

	c, err := NewClient(Options{URL: srv.URL, Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	// server error
	srv.FailNext(1)
	_, err = c.FetchBytes(context.Background(), 10)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.True(t, IsRetryable(err))

	// short payload
	srv.SetHandler(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"uint8","length":10,"size":1,"data":[1,2],"success":true}`))
	})
	_, err = c.FetchBytes(context.Background(), 10)
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	// timeout
	srv.SetHandler(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	_, err = c.FetchBytes(context.Background(), 10)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsRetryable(err))

	// invalid count is not retryable
	_, err = c.FetchBytes(context.Background(), 0)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestClientUnreachable(t *testing.T) {
	t.Parallel()

	srv := qrngtest.NewServer()
	url := srv.URL
	srv.Close()

	c, err := NewClient(Options{URL: url})
	require.NoError(t, err)

	_, err = c.FetchBytes(context.Background(), 10)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestNewClientInvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Options{URL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := NewClient(Options{})
	require.NoError(t, err)
	assert.Contains(t, c.requestURL(5, UnitHex), "qrng.anu.edu.au")
}
