// Package api is the HTTP adapter behind the record and photo interfaces the
// submission orchestrator consumes.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rentloop/listr/internal/draft"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/submit"
)

// LimitReachedCode is the error code the backend uses when the account may
// not create more listings.
const LimitReachedCode = "listing_limit_reached"

// Config holds the adapter settings.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
	UserAgent  string
}

// Client implements submit.RecordAPI and submit.PhotoAPI over HTTP.
type Client struct {
	http *resty.Client
}

var (
	_ submit.RecordAPI = (*Client)(nil)
	_ submit.PhotoAPI  = (*Client)(nil)
)

// ErrorBody is the JSON error envelope returned by the backend.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusError is a non-2xx response.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "listr"
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(300 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(retryable)
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	return &Client{http: c}
}

// retryable retries transport failures and server errors, but never a POST:
// a create or upload that timed out may still have landed.
func retryable(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method == http.MethodPost {
		return false
	}
	return err != nil || resp.StatusCode() >= 500
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&ErrorBody{})
}

// check turns a transport error or a non-2xx response into an error.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}

	body, _ := resp.Error().(*ErrorBody)
	serr := &StatusError{Status: resp.StatusCode()}
	if body != nil {
		serr.Code = body.Code
		serr.Message = body.Message
	}
	if serr.Message == "" {
		serr.Message = fmt.Sprintf("%s: %s", op, resp.Status())
	}
	logger.Debug("%s returned %d (code=%q)", op, serr.Status, serr.Code)

	if resp.StatusCode() == http.StatusPaymentRequired || serr.Code == LimitReachedCode {
		return fmt.Errorf("%w: %s", submit.ErrLimitReached, serr.Message)
	}
	return serr
}

type idResponse struct {
	ID string `json:"id"`
}

// Create posts a new listing and returns its id.
func (c *Client) Create(ctx context.Context, p draft.Payload) (string, error) {
	var out idResponse
	resp, err := c.request(ctx).SetBody(p).SetResult(&out).Post("/listings")
	if err := check("create listing", resp, err); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("create listing: response has no id")
	}
	return out.ID, nil
}

// Update replaces the fields of listing id.
func (c *Client) Update(ctx context.Context, id string, p draft.Payload) error {
	resp, err := c.request(ctx).SetPathParam("id", id).SetBody(p).Put("/listings/{id}")
	return check("update listing", resp, err)
}

// Publish makes listing id visible.
func (c *Client) Publish(ctx context.Context, id string) error {
	resp, err := c.request(ctx).SetPathParam("id", id).Post("/listings/{id}/publish")
	return check("publish listing", resp, err)
}

// Get fetches listing id with its photos.
func (c *Client) Get(ctx context.Context, id string) (*draft.Record, error) {
	var rec draft.Record
	resp, err := c.request(ctx).SetPathParam("id", id).SetResult(&rec).Get("/listings/{id}")
	if err := check("get listing", resp, err); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return &rec, nil
}

// Quota returns the account's listing allowance.
func (c *Client) Quota(ctx context.Context) (submit.Quota, error) {
	var q submit.Quota
	resp, err := c.request(ctx).SetResult(&q).Get("/listings/quota")
	if err := check("get quota", resp, err); err != nil {
		return submit.Quota{}, err
	}
	return q, nil
}

// Upload attaches a new photo to listing recordID as a multipart form.
func (c *Client) Upload(ctx context.Context, recordID string, req submit.UploadRequest) (string, error) {
	filename := req.Filename
	if filename == "" {
		filename = "photo.jpg"
	}

	var out idResponse
	resp, err := c.request(ctx).
		SetPathParam("id", recordID).
		SetFileReader("file", filename, bytes.NewReader(req.File)).
		SetMultipartFormData(map[string]string{
			"sort_order": strconv.Itoa(req.SortOrder),
			"tag":        string(req.Tag),
		}).
		SetResult(&out).
		Post("/listings/{id}/photos")
	if err := check("upload photo", resp, err); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Delete detaches photoID from listing recordID.
func (c *Client) Delete(ctx context.Context, recordID, photoID string) error {
	resp, err := c.request(ctx).
		SetPathParams(map[string]string{"id": recordID, "photo": photoID}).
		Delete("/listings/{id}/photos/{photo}")
	return check("delete photo", resp, err)
}

// Reorder moves photoID to sortOrder.
func (c *Client) Reorder(ctx context.Context, recordID, photoID string, sortOrder int) error {
	resp, err := c.request(ctx).
		SetPathParams(map[string]string{"id": recordID, "photo": photoID}).
		SetBody(map[string]int{"sort_order": sortOrder}).
		Patch("/listings/{id}/photos/{photo}")
	return check("reorder photo", resp, err)
}
