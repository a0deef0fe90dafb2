package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/entropool/config"
)

var errTestTeapot = errors.New("i am a teapot")

func TestMain(m *testing.M) {
	if err := prep(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to prep api: %s\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func testRequest(t *testing.T, srv *httptest.Server, method, path, body string) (int, string) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body)) //nolint:noctx
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestEndpointRegistration(t *testing.T) { //nolint:paralleltest // Modifies global state.
	// Missing path.
	err := RegisterEndpoint(Endpoint{ActionFunc: ping})
	assert.ErrorIs(t, err, ErrInvalidEndpoint)

	// No function.
	err = RegisterEndpoint(Endpoint{Path: "test/nofunc"})
	assert.ErrorIs(t, err, ErrInvalidEndpoint)

	// Two functions.
	err = RegisterEndpoint(Endpoint{Path: "test/twofunc", ActionFunc: ping, StructFunc: listEndpoints})
	assert.ErrorIs(t, err, ErrInvalidEndpoint)

	// Bad method.
	err = RegisterEndpoint(Endpoint{Path: "test/patch", Method: http.MethodPatch, ActionFunc: ping})
	assert.ErrorIs(t, err, ErrInvalidEndpoint)

	// Duplicate.
	require.NoError(t, RegisterEndpoint(Endpoint{Path: "test/dup", ActionFunc: ping}))
	assert.ErrorIs(t, RegisterEndpoint(Endpoint{Path: "test/dup", ActionFunc: ping}), ErrAlreadyRegistered)

	// Same path with another method is fine.
	assert.NoError(t, RegisterEndpoint(Endpoint{Path: "test/dup", Method: http.MethodPost, ActionFunc: ping}))
}

func TestEndpointServing(t *testing.T) { //nolint:paralleltest // Modifies global state.
	require.NoError(t, RegisterEndpoint(Endpoint{
		Path:   "test/echo",
		Method: http.MethodPost,
		DataFunc: func(ar *Request) ([]byte, error) {
			return ar.InputData, nil
		},
	}))
	require.NoError(t, RegisterEndpoint(Endpoint{
		Path: "test/fail",
		ActionFunc: func(ar *Request) (string, error) {
			n, err := ar.QueryInt("n", 1)
			if err != nil {
				return "", err
			}
			if n > 1 {
				return "", errTestTeapot
			}
			return "fine", nil
		},
	}))
	RegisterErrorStatus(errTestTeapot, http.StatusTeapot)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	status, body := testRequest(t, srv, http.MethodGet, "/api/v1/ping", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Pong.\n", body)

	status, body = testRequest(t, srv, http.MethodPost, "/api/v1/test/echo", "hello")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", body)

	status, _ = testRequest(t, srv, http.MethodGet, "/api/v1/test/echo", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status, _ = testRequest(t, srv, http.MethodGet, "/api/v1/does/not/exist", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = testRequest(t, srv, http.MethodGet, "/api/v1/test/fail", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = testRequest(t, srv, http.MethodGet, "/api/v1/test/fail?n=2", "")
	assert.Equal(t, http.StatusTeapot, status)

	status, body = testRequest(t, srv, http.MethodGet, "/api/v1/test/fail?n=two", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "not an integer")

	status, body = testRequest(t, srv, http.MethodGet, "/api/v1/endpoints", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"Path":"ping"`)
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusInternalServerError, StatusForError(errors.New("unknown")))
	assert.Equal(t, http.StatusBadRequest, StatusForError(BadRequest("n must be %d", 1)))
	assert.Equal(t, http.StatusBadRequest, StatusForError(fmt.Errorf("wrapped: %w", ErrBadRequest)))
}

func TestConfigEndpoints(t *testing.T) { //nolint:paralleltest // Modifies global state.
	require.NoError(t, config.Register(&config.Option{
		Name:           "Test Value",
		Key:            "test/api/value",
		Description:    "Test option.",
		OptType:        config.OptTypeInt,
		ExpertiseLevel: config.ExpertiseLevelDeveloper,
		DefaultValue:   10,
	}))
	testValue := config.GetAsInt("test/api/value", 0)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	status, body := testRequest(t, srv, http.MethodGet, "/api/v1/config/options", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "test/api/value")

	status, _ = testRequest(t, srv, http.MethodPut, "/api/v1/config/options/test/api/value", `{"value": 20}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(20), testValue())

	status, _ = testRequest(t, srv, http.MethodPut, "/api/v1/config/options/test/api/value", `{"value": "twenty"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = testRequest(t, srv, http.MethodPut, "/api/v1/config/options/test/api/value", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = testRequest(t, srv, http.MethodPut, "/api/v1/config/options/test/api/missing", `{"value": 1}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = testRequest(t, srv, http.MethodPut, "/api/v1/config/options/test/api/value", `{"value": null}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(10), testValue())
}

func TestFeed(t *testing.T) { //nolint:paralleltest // Modifies global state.
	require.NoError(t, RegisterEndpoint(Endpoint{
		Path: "test/feed",
		HandlerFunc: func(w http.ResponseWriter, r *http.Request) {
			feed, err := UpgradeToFeed(w, r)
			if err != nil {
				return
			}
			feed.Send(FeedMsgTypeUpd, []byte("one"))
			feed.Send(FeedMsgTypeDone, nil)
			<-feed.Done()
		},
	}))

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/test/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "upd|one", string(msg))

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "done|", string(msg))

	require.NoError(t, conn.Close())
}
