package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const requestTimeout = 15 * time.Minute

var httpClient = &http.Client{}

// call sends a request to the API and writes the response body to stdout.
func call(ctx context.Context, method, path string, query url.Values, body []byte) error {
	data, err := request(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(data)
	if err == nil && !bytes.HasSuffix(data, []byte("\n")) {
		_, err = fmt.Println()
	}
	return err
}

func request(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	u := url.URL{
		Scheme:   "http",
		Host:     apiAddress,
		Path:     "/api/v1/" + path,
		RawQuery: query.Encode(),
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	return data, nil
}
