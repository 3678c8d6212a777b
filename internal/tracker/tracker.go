// Package tracker talks to the external open-tracking service: it builds the
// pixel reference embedded in each email and registers sends with it.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"time"

	"sheetmail/internal/model"
)

// PixelURL is the image the recipient's client loads on open. The cb query
// defeats caching proxies.
func PixelURL(base, trackID, cacheBuster string) string {
	return fmt.Sprintf("%s/pixel/%s.png?cb=%s", base, url.PathEscape(trackID), url.QueryEscape(cacheBuster))
}

// PixelTag renders the zero-size image element appended to HTML bodies.
func PixelTag(base, trackID, cacheBuster string) string {
	return `<img src="` + html.EscapeString(PixelURL(base, trackID, cacheBuster)) + `" width="1" height="1"/>`
}

// Client registers sends with the tracker.
type Client struct {
	base       string
	httpClient *http.Client
}

// New returns a Client for the tracker at base. timeout bounds each call.
func New(base string, timeout time.Duration) *Client {
	return &Client{
		base:       base,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Register posts the tracking record to {base}/_register_send. The response
// body is not interpreted; any non-2xx status is an error.
func (c *Client) Register(ctx context.Context, rec model.TrackingRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/_register_send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("tracker returned %s", resp.Status)
	}
	return nil
}
