// Package bety provides a client for the v1 REST API of a BETYdb trait and
// experiment database.
package bety

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/ratelimit"
)

// DefaultURL is the TERRA REF public BETYdb instance.
const DefaultURL string = "https://terraref.ncsa.illinois.edu/bety/"

// DefaultKey is the well-known read-only key for the public instance.
const DefaultKey string = "9999999999999999999999999999999999999999"

// Client is a BETYdb v1 API client. Requests are rate-limited and transient
// failures are retried with exponential backoff.
type Client struct {
	url         *url.URL
	key         string
	http_client *http.Client
	limiter     ratelimit.Limiter
	max_retries uint64
}

// NewClient returns a Client for the BETYdb instance named by the BETYDB_URL
// and BETYDB_KEY environment variables, falling back to the TERRA REF public
// instance.
func NewClient() (*Client, error) {

	str_url := os.Getenv("BETYDB_URL")

	if str_url == "" {
		str_url = DefaultURL
	}

	key := os.Getenv("BETYDB_KEY")

	if key == "" {
		key = DefaultKey
	}

	return NewClientWithURL(str_url, key)
}

// NewClientWithURL returns a Client for the BETYdb instance at str_url.
func NewClientWithURL(str_url string, key string) (*Client, error) {

	u, err := url.Parse(str_url)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse BETYdb URL '%s', %w", str_url, err)
	}

	cl := &Client{
		url: u,
		key: key,
		http_client: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter:     ratelimit.New(4),
		max_retries: 4,
	}

	return cl, nil
}

// get fetches a single API endpoint and returns the raw response body after
// confirming it carries a 'data' block.
func (cl *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {

	u := *cl.url
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/" + endpoint

	q := url.Values{}

	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	q.Set("key", cl.key)
	u.RawQuery = q.Encode()

	var body []byte

	op := func() error {

		cl.limiter.Take()

		req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)

		if err != nil {
			return backoff.Permanent(err)
		}

		slog.Debug("Calling BETYdb", "endpoint", endpoint)

		rsp, err := cl.http_client.Do(req)

		if err != nil {
			return err
		}

		defer rsp.Body.Close()

		if rsp.StatusCode >= 500 {
			return fmt.Errorf("BETYdb returned %s", rsp.Status)
		}

		if rsp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("BETYdb returned %s", rsp.Status))
		}

		body, err = io.ReadAll(rsp.Body)

		if err != nil {
			return err
		}

		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cl.max_retries)

	err := backoff.Retry(op, backoff.WithContext(bo, ctx))

	if err != nil {
		return nil, fmt.Errorf("Failed to fetch %s, %w", endpoint, err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("Invalid JSON in %s response", endpoint)
	}

	data_rsp := gjson.GetBytes(body, "data")

	if !data_rsp.Exists() {
		return nil, fmt.Errorf("Missing data block in %s response", endpoint)
	}

	return body, nil
}
