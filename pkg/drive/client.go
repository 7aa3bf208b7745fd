package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "chartfetch/pkg/errors"
	"chartfetch/pkg/logger"
	"chartfetch/pkg/ratelimit"
	"chartfetch/pkg/retry"
)

const (
	// listRetryCeiling bounds consecutive transient failures while listing
	// a folder or fetching an item.
	listRetryCeiling = 5
	// streamRetryCeiling bounds attempts to open a download stream.
	streamRetryCeiling = 10
)

// Client is the sole point of contact with the Drive API. Every call is
// dispatched through the shared scheduler.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	sched       *ratelimit.Scheduler
	logger      logger.Logger
	listBackoff retry.BackoffStrategy
}

// NewClient creates a Drive API client authenticated with a bearer token.
func NewClient(token string, timeout time.Duration, sched *ratelimit.Scheduler, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     BaseURL,
		token:       token,
		sched:       sched,
		logger:      log,
		listBackoff: retry.DefaultExponentialBackoff(),
	}
}

// SetBaseURL overrides the API root. Used by tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// ListChildren returns the full child sequence of a folder, transparently
// paginated. After listRetryCeiling consecutive transient failures the
// listing fails; a page success resets the counter. A listing that comes
// back empty triggers a direct fetch of the folder itself, so an
// inaccessible folder surfaces as a permission error rather than as empty.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]Item, error) {
	var items []Item
	pageToken := ""
	consecutiveFailures := 0
	backoff := c.listBackoff

	for {
		page, err := c.listPage(ctx, folderID, pageToken)
		if err != nil {
			if !errs.IsTransient(err) {
				return nil, err
			}
			consecutiveFailures++
			if consecutiveFailures >= listRetryCeiling {
				c.logger.ErrorWithFields("listing failed after repeated transient errors", map[string]interface{}{
					"folder_id": folderID,
					"failures":  consecutiveFailures,
				})
				return nil, fmt.Errorf("listing folder %s: %w", folderID, err)
			}
			if werr := retry.Wait(ctx, backoff.NextDelay(consecutiveFailures)); werr != nil {
				return nil, werr
			}
			continue
		}
		consecutiveFailures = 0

		for i := range page.Files {
			items = append(items, page.Files[i].toItem())
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if len(items) == 0 {
		// Distinguish an empty folder from one we cannot see into.
		if _, err := c.GetItem(ctx, folderID); err != nil && errs.IsPermission(err) {
			return nil, err
		}
	}

	c.logger.DebugWithFields("listed folder", map[string]interface{}{
		"folder_id": folderID,
		"items":     len(items),
	})
	return items, nil
}

// listPage fetches a single page of a folder's children.
func (c *Client) listPage(ctx context.Context, folderID, pageToken string) (*fileList, error) {
	var page fileList
	if err := c.fetchJSON(ctx, listChildrenURL(c.baseURL, folderID, pageToken), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetItem fetches a single item's metadata, retrying transient failures up
// to the listing ceiling.
func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	var resource fileResource

	err := retry.Do(func() error {
		return c.fetchJSON(ctx, getItemURL(c.baseURL, id), &resource)
	}, &retry.Config{
		MaxAttempts: listRetryCeiling,
		Backoff:     c.listBackoff,
		RetryIf:     errs.IsTransient,
		Context:     ctx,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, err
	}

	item := resource.toItem()
	return &item, nil
}

// OpenDownloadStream opens a byte stream for an item's content. It retries
// transient failures up to streamRetryCeiling times with delays of 4^k
// seconds; permission-class failures are not retried. The returned stream
// holds a scheduler slot until closed.
func (c *Client) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error) {
	backoff := retry.StreamBackoff()
	var lastErr error

	for attempt := 1; attempt <= streamRetryCeiling; attempt++ {
		if attempt > 1 {
			c.logger.WarnWithFields("retrying download stream", map[string]interface{}{
				"item_id": id,
				"attempt": attempt,
				"error":   lastErr.Error(),
			})
			if err := retry.Wait(ctx, backoff.NextDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		stream, err := c.openStream(ctx, id)
		if err == nil {
			return stream, nil
		}
		if !errs.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("opening download stream for %s: max attempts (%d) exceeded: %w",
		id, streamRetryCeiling, lastErr)
}

// openStream performs a single download stream attempt.
func (c *Client) openStream(ctx context.Context, id string) (io.ReadCloser, error) {
	release, err := c.sched.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, downloadURL(c.baseURL, id))
	if err != nil {
		release()
		return nil, err
	}
	if err := checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		release()
		return nil, err
	}

	return &scheduledBody{ReadCloser: resp.Body, release: release}, nil
}

// scheduledBody releases its scheduler slot when the stream is closed.
type scheduledBody struct {
	io.ReadCloser
	release func()
}

func (b *scheduledBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}

// fetchJSON performs a scheduled GET and decodes the JSON response into
// target.
func (c *Client) fetchJSON(ctx context.Context, url string, target interface{}) error {
	release, err := c.sched.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse API response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeMalformed, resp.StatusCode, "failed to parse response: %v", err)
	}

	return nil
}

// doRequest performs an authenticated GET with request logging.
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("API request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	c.logger.DebugWithFields("API request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// checkResponseStatus maps HTTP statuses onto the error taxonomy.
func checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.ErrorTypePermission, resp.StatusCode, "item not accessible")
	case resp.StatusCode == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")
	case resp.StatusCode >= 500:
		return errs.New(errs.ErrorTypeServer, resp.StatusCode, "server error")
	default:
		return errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	}
}
