// Package storage reports object storage usage for the dashboard. It talks
// to any S3-compatible endpoint, including the one Supabase Storage exposes.
package storage

import (
	"context"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sadopc/supadmin/internal/config"
	"github.com/sadopc/supadmin/internal/errs"
)

// Summary is the total usage across all buckets.
type Summary struct {
	Buckets int   `json:"buckets"`
	Objects int64 `json:"objects"`
	Bytes   int64 `json:"bytes"`
}

// lister is the part of *miniogo.Client used here.
type lister interface {
	ListBuckets(ctx context.Context) ([]miniogo.BucketInfo, error)
	ListObjects(ctx context.Context, bucket string, opts miniogo.ListObjectsOptions) <-chan miniogo.ObjectInfo
}

// Client computes usage summaries. It is safe for concurrent use.
type Client struct {
	api lister
}

// New creates a client for cfg. It does not contact the server.
func New(cfg config.StorageConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errs.New(errs.ErrKindInvalidInput, "storage endpoint and credentials are required")
	}
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	if rest, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint, secure = rest, true
	} else if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint, secure = rest, false
	}
	endpoint = strings.TrimRight(endpoint, "/")

	api, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create storage client", err)
	}
	return &Client{api: api}, nil
}

// Ping verifies the endpoint is reachable by listing buckets.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListBuckets(ctx); err != nil {
		return mapError(err, "storage ping failed")
	}
	return nil
}

// Usage walks every bucket and sums object sizes.
func (c *Client) Usage(ctx context.Context) (Summary, error) {
	buckets, err := c.api.ListBuckets(ctx)
	if err != nil {
		return Summary{}, mapError(err, "failed to list buckets")
	}

	sum := Summary{Buckets: len(buckets)}
	for _, b := range buckets {
		ctx, cancel := context.WithCancel(ctx)
		for obj := range c.api.ListObjects(ctx, b.Name, miniogo.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				cancel()
				return Summary{}, mapError(obj.Err, "failed to list objects in "+b.Name)
			}
			sum.Objects++
			sum.Bytes += obj.Size
		}
		cancel()
	}
	return sum, nil
}
