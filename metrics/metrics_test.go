package metrics

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/entropool/config"
)

func TestCounter(t *testing.T) {
	t.Parallel()

	c, err := NewCounter("test/counter/total", map[string]string{"b": "2", "a": "1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, `entropool_test_counter_total{a="1",b="2"}`, c.LabeledID())

	c.Inc()
	c.Add(2)
	assert.Equal(t, uint64(3), c.Get())

	buf := &bytes.Buffer{}
	c.WritePrometheus(buf)
	assert.Contains(t, buf.String(), `entropool_test_counter_total{a="1",b="2"} 3`)

	// Registering the same ID and labels again fails.
	_, err = NewCounter("test/counter/total", map[string]string{"a": "1", "b": "2"}, nil)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	// Other labels are fine.
	_, err = NewCounter("test/counter/total", map[string]string{"a": "3"}, nil)
	assert.NoError(t, err)
}

func TestInvalidMetrics(t *testing.T) {
	t.Parallel()

	_, err := NewCounter("test/in-valid", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NewCounter("test/valid", map[string]string{"in-valid": "x"}, nil)
	assert.ErrorIs(t, err, ErrInvalidLabel)

	_, err = NewGauge("test/nofunc", nil, nil, nil)
	assert.Error(t, err)

	assert.Panics(t, func() {
		MustCounter("0test", nil, nil)
	})
}

func TestFetchingCounterAndGauge(t *testing.T) {
	t.Parallel()

	var value uint64 = 7
	fc, err := NewFetchingCounter("test/fetching/total", nil, func() uint64 { return value }, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), fc.CurrentValue())

	MustGauge("test/gauge", nil, func() float64 { return 1.5 }, &Options{
		ExpertiseLevel: config.ExpertiseLevelExpert,
	})

	buf := &bytes.Buffer{}
	WriteMetrics(buf, config.ExpertiseLevelDeveloper)
	assert.Contains(t, buf.String(), "entropool_test_fetching_total 7")
	assert.Contains(t, buf.String(), "entropool_test_gauge 1.5")

	buf.Reset()
	WriteMetrics(buf, config.ExpertiseLevelUser)
	assert.Contains(t, buf.String(), "entropool_test_fetching_total 7")
	assert.NotContains(t, buf.String(), "entropool_test_gauge")
}

func TestHistogram(t *testing.T) {
	t.Parallel()

	h := MustHistogram("test/duration/seconds", nil, nil)
	h.UpdateDuration(time.Now().Add(-time.Second))

	buf := &bytes.Buffer{}
	h.WritePrometheus(buf)
	assert.Contains(t, buf.String(), "entropool_test_duration_seconds_count 1")
}

func TestPush(t *testing.T) {
	t.Parallel()

	pushTo, err := pushURLWithInstance("http://127.0.0.1/api/v1/import/prometheus", "")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1/api/v1/import/prometheus", pushTo)

	pushTo, err = pushURLWithInstance("http://127.0.0.1/api/v1/import/prometheus", "node1")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1/api/v1/import/prometheus?extra_label=instance%3Dnode1", pushTo)

	MustCounter("test/push/total", nil, nil).Inc()

	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		received <- data
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, writeMetricsTo(context.Background(), srv.URL))
	assert.Contains(t, string(<-received), "entropool_test_push_total 1")

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer failing.Close()
	assert.Error(t, writeMetricsTo(context.Background(), failing.URL))
}
