package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/safing/entropool/config"
	"github.com/safing/entropool/log"
)

const (
	pushInterval = 10 * time.Second
	pushTimeout  = 5 * time.Second
)

var pushClient = &http.Client{Timeout: pushTimeout}

// pushURLWithInstance adds the instance as an extra label to the push URL,
// in the form VictoriaMetrics understands.
func pushURLWithInstance(pushURL, instance string) (string, error) {
	if instance == "" {
		return pushURL, nil
	}

	u, err := url.Parse(pushURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Add("extra_label", "instance="+instance)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// writeMetricsTo pushes all metrics to the given URL in one request.
func writeMetricsTo(ctx context.Context, pushTo string) error {
	var buf bytes.Buffer
	WriteMetrics(&buf, config.ExpertiseLevelDeveloper)
	if buf.Len() == 0 {
		log.Debugf("metrics: not pushing metrics, nothing to send")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, pushTo, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := pushClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("got %s while writing metrics to %s: %s", resp.Status, pushTo, body)
}

// metricsWriter pushes metrics every pushInterval. A failed push ends the
// worker, which is then restarted with backoff.
func metricsWriter(ctx context.Context) error {
	pushTo, err := pushURLWithInstance(pushOption(), instanceOption())
	if err != nil {
		return fmt.Errorf("invalid push url: %w", err)
	}

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := writeMetricsTo(ctx, pushTo); err != nil {
				return err
			}
		}
	}
}
