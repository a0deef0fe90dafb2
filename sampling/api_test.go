package sampling

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/safing/entropool/api"
)

func TestMain(m *testing.M) {
	if err := prep(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to prep sampling: %s\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()

	resp, err := srv.Client().Get(srv.URL + "/api/v1/" + path) //nolint:noctx
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestAPI(t *testing.T) { //nolint:paralleltest // Modifies the engines.
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	status, _ := get(t, srv, "random/int?min=0&max=10")
	assert.Equal(t, http.StatusServiceUnavailable, status)

	localEngine.Store(seededEngine(t))
	defer localEngine.Store(nil)

	status, body := get(t, srv, "random/int?min=10&max=20&source=local")
	require.Equal(t, http.StatusOK, status, body)
	n := gjson.Get(body, "value").Int()
	assert.GreaterOrEqual(t, n, int64(10))
	assert.Less(t, n, int64(20))
	assert.Equal(t, "local", gjson.Get(body, "source").String())

	status, _ = get(t, srv, "random/int?min=5&max=5&source=local")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = get(t, srv, "random/int?min=x&source=local")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = get(t, srv, "random/int?min=0&max=10&source=nowhere")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = get(t, srv, "random/hex?length=9&source=local")
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, gjson.Get(body, "value").String(), 9)

	status, body = get(t, srv, "random/bytes?length=4&source=local")
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, gjson.Get(body, "value").String(), 8)

	status, body = get(t, srv, "random/coordinates?count=3&source=local")
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, gjson.Parse(body).Array(), 3)

	status, body = get(t, srv, "random/double?source=local")
	require.Equal(t, http.StatusOK, status, body)
	f := gjson.Get(body, "value").Float()
	assert.GreaterOrEqual(t, f, 0.0)
	assert.Less(t, f, 1.0)
}
