package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// Config holds object storage configuration
type Config struct {
	// BucketURL is a gocloud.dev bucket URL, e.g. "s3://bucket", "file:///var/data", "mem://"
	BucketURL    string
	SignedURLTTL time.Duration
}

// Client wraps a blob bucket for staging uploaded files
type Client struct {
	bucket *blob.Bucket
	ttl    time.Duration
	logger *slog.Logger
	http   *http.Client
}

// NewClient opens the configured bucket and verifies it is accessible
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	bucket, err := blob.OpenBucket(ctx, config.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", config.BucketURL, err)
	}

	ok, err := bucket.IsAccessible(ctx)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("failed to check bucket accessibility: %w", err)
	}
	if !ok {
		bucket.Close()
		return nil, fmt.Errorf("bucket %s is not accessible", config.BucketURL)
	}

	ttl := config.SignedURLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	logger.Info("Object storage bucket opened",
		slog.String("bucket_url", config.BucketURL),
		slog.Duration("signed_url_ttl", ttl),
	)

	return &Client{
		bucket: bucket,
		ttl:    ttl,
		logger: logger,
		http:   &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Put writes the raw bytes under the given key
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := c.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}

	c.logger.Debug("Object staged",
		slog.String("key", key),
		slog.Int("size", len(data)),
	)

	return nil
}

// SignedGetURL returns a time-limited read URL for the given key
func (c *Client) SignedGetURL(ctx context.Context, key string) (string, error) {
	url, err := c.bucket.SignedURL(ctx, key, &blob.SignedURLOptions{
		Expiry: c.ttl,
		Method: http.MethodGet,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign read URL for %s: %w", key, err)
	}
	return url, nil
}

// Fetch reads the object through a signed URL. Drivers that cannot sign URLs
// (mem, file without a signer) fall back to a direct bucket read.
func (c *Client) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	url, err := c.SignedGetURL(ctx, key)
	if err != nil {
		if gcerrors.Code(err) != gcerrors.Unimplemented {
			return nil, err
		}
		c.logger.Debug("Signed URLs not supported by bucket driver, reading directly",
			slog.String("key", key),
		)
		return c.openReader(ctx, key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build signed read request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object %s: %w", key, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch object %s: status %d", key, resp.StatusCode)
	}

	return resp.Body, nil
}

func (c *Client) openReader(ctx context.Context, key string) (io.ReadCloser, error) {
	exists, err := c.bucket.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check object %s: %w", key, err)
	}
	if !exists {
		return nil, fmt.Errorf("object %s does not exist", key)
	}

	reader, err := c.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return reader, nil
}

// Close releases the bucket handle
func (c *Client) Close() error {
	return c.bucket.Close()
}
