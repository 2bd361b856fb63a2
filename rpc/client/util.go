package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("client")

// retryBackoff is multiplied with the attempt number between retries
const retryBackoff = 200 * time.Millisecond

// baseURL returns the endpoint with a scheme and without a trailing slash
func baseURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	return endpoint
}

// retryable reports whether a request that got status should be sent again
func retryable(status int) bool {
	return status == http.StatusBadGateway ||
		status == http.StatusGatewayTimeout ||
		status == http.StatusTooManyRequests
}

// invoke sends a JSON request and decodes the response into out (if not nil).
// Transport errors and retryable statuses are retried up to RetryCount times.
// Error responses are converted back into *store.Error values.
func (c *Client) invoke(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = raw
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
			log.Debugf("retrying %s %s (attempt %d): %v", method, path, attempt, lastErr)
		}

		status, respBody, err := c.send(ctx, method, path, payload)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			lastErr = err
			continue
		}

		if status >= 200 && status < 300 {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
			}
			return nil
		}

		lastErr = decodeError(status, respBody)
		if !retryable(status) {
			return lastErr
		}
	}
	return lastErr
}

// send performs a single HTTP round trip
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}
	return resp.StatusCode, respBody, nil
}

// decodeError converts an error response into a *store.Error
func decodeError(status int, body []byte) error {
	var resp common.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Code == "" {
		return store.Errorf(store.RetCInternalError, "unexpected status %d: %s",
			status, strings.TrimSpace(string(body)))
	}
	return store.NewError(store.ParseRetCode(resp.Code), resp.Message)
}
