package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"roomrisk/internal/domain/overbooking"
)

// ErrCalendarNotFound is returned when the calendar object does not exist.
var ErrCalendarNotFound = errors.New("s3: seasonal calendar not found")

// Client reads the seasonal calendar from an S3-compatible bucket.
type Client struct {
	bucket string
	key    string
	client *minio.Client
	logger *slog.Logger
}

type ClientConfig struct {
	Endpoint  string
	UseSSL    bool
	AccessKey string
	SecretKey string
	Bucket    string
	Key       string
}

func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	key := strings.Trim(strings.TrimSpace(cfg.Key), "/")
	if key == "" {
		return nil, errors.New("s3: calendar key is required")
	}
	mc, err := minio.New(parseEndpoint(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{bucket: bucket, key: key, client: mc, logger: logger}, nil
}

// Load fetches and parses the calendar object.
func (c *Client) Load(ctx context.Context) ([]overbooking.SeasonalPeriod, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, c.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3: get %s/%s: %w", c.bucket, c.key, err)
	}
	defer obj.Close()
	raw, err := readAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrCalendarNotFound
		}
		return nil, fmt.Errorf("s3: read %s/%s: %w", c.bucket, c.key, err)
	}
	periods, err := ParseCalendar(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("seasonal calendar loaded", "bucket", c.bucket, "key", c.key, "periods", len(periods))
	return periods, nil
}

// Ping checks that the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("s3: check bucket: %w", err)
	}
	if !ok {
		return fmt.Errorf("s3: bucket %s does not exist", c.bucket)
	}
	return nil
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ CalendarSource = (*Client)(nil)

