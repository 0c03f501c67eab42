// Package staging keeps the raw bytes of selected files in object storage
// between selection and the batch calls that need them. Each run owns a
// key prefix; discarding a run removes its staged payloads.
package staging

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/harborlabs/stevedore/internal/batch"
	"github.com/harborlabs/stevedore/internal/config"
	"github.com/harborlabs/stevedore/internal/record"
)

type Client struct {
	mc     *minio.Client
	bucket string
}

func New(cfg config.MinIOConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging client: %w", err)
	}
	return &Client{mc: mc, bucket: cfg.Bucket}, nil
}

func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Ping verifies the staging bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.mc.BucketExists(ctx, c.bucket); err != nil {
		return fmt.Errorf("ping staging: %w", err)
	}
	return nil
}

func payloadKey(runID string, rec record.FileRecord) string {
	return fmt.Sprintf("%s/payloads/%s", runID, rec.Name)
}

// Stage stores one file's raw bytes under the run's prefix.
func (c *Client) Stage(ctx context.Context, runID string, rec record.FileRecord, r io.Reader, size int64) error {
	_, err := c.mc.PutObject(ctx, c.bucket, payloadKey(runID, rec), r, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("stage payload %s: %w", rec.Name, err)
	}
	return nil
}

// Discard removes every object staged under the run's prefix. Called when
// a run is deleted or selection restarts from scratch.
func (c *Client) Discard(ctx context.Context, runID string) error {
	objects := c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    runID + "/",
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("list staged payloads: %w", obj.Err)
		}
		if err := c.mc.RemoveObject(ctx, c.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove staged payload %s: %w", obj.Key, err)
		}
	}
	return nil
}

// ArchiveReport stores an exported report snapshot next to the run's
// payloads and returns the object key.
func (c *Client) ArchiveReport(ctx context.Context, runID string, data []byte) (string, error) {
	key := fmt.Sprintf("%s/reports/report.json", runID)
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("archive report: %w", err)
	}
	return key, nil
}

// Source returns a PayloadSource reading this run's staged payloads.
func (c *Client) Source(runID string) batch.PayloadSource {
	return &source{c: c, runID: runID}
}

type source struct {
	c     *Client
	runID string
}

func (s *source) Open(ctx context.Context, rec record.FileRecord) (io.ReadCloser, error) {
	obj, err := s.c.mc.GetObject(ctx, s.c.bucket, payloadKey(s.runID, rec), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open staged payload %s: %w", rec.Name, err)
	}
	return obj, nil
}
