package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/osoriolabs/lawdesk/internal/config"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Client talks to the blob storage service over its S3-compatible HTTP API.
// Object keys are partitioned per tenant, see ObjectKey.
type Client struct {
	endpoint   string
	bucket     string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.ObjectStore) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		bucket:     cfg.Bucket,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ObjectKey builds the storage key for a tenant's document blob.
// Keys always start with the tenant id so a leaked key cannot address
// another tenant's object without also passing the ownership check.
func ObjectKey(userUID, documentID string) string {
	return fmt.Sprintf("%s/documents/%s", userUID, documentID)
}

func (c *Client) objectURL(key string) string {
	return c.endpoint + "/" + c.bucket + "/" + url.PathEscape(key)
}

// Put uploads an object, overwriting any existing one under the same key.
func (c *Client) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(key), body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return errors.New("unexpected status: " + resp.Status)
	}
	return nil
}

// Get downloads an object. The caller must close the returned reader.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(key), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", errors.New("unexpected status: " + resp.Status)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(key), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return errors.New("unexpected status: " + resp.Status)
	}
	return nil
}
