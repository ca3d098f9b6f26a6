// Package s3 handles archiving generated report documents to S3.
package s3

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/zonewatch/zonereport/pkg/config"
)

// Client represents an S3 archive client
type Client struct {
	s3Client *s3.Client
	bucket   string
	prefix   string
}

// NewClient creates a new S3 archive client from configuration
func NewClient(cfg config.S3Config) (*Client, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("S3 archive is not enabled in configuration")
	}

	s3Client, err := getS3Client(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	return &Client{
		s3Client: s3Client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
	}, nil
}

// getS3Client initializes and returns an S3 client based on configuration
func getS3Client(cfg config.S3Config) (*s3.Client, error) {
	ctx := context.Background()

	httpClient := &http.Client{}
	if cfg.SkipCertValidation {
		log.Printf("Warning: TLS certificate validation is disabled for S3 connections")
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	sdkOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)),
		awsconfig.WithHTTPClient(httpClient),
		awsconfig.WithRegion(cfg.Region),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, sdkOptions...)
	if err != nil {
		return nil, fmt.Errorf("AWS SDK config initialization error: %w", err)
	}

	s3Options := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = cfg.PathStyle
		},
	}

	// Custom endpoint for S3-compatible storage (MinIO, Ceph)
	if cfg.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return s3.NewFromConfig(awsCfg, s3Options...), nil
}

// ObjectKey returns the archive key for a report file, grouped by zone
func (c *Client) ObjectKey(zoneName, fileName string) string {
	return path.Join(c.prefix, zoneName, fileName)
}

// ArchiveReport uploads a generated document under the given object key
func (c *Client) ArchiveReport(ctx context.Context, objectKey string, data []byte) error {
	contentType := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload report to S3: %w", err)
	}

	log.Printf("Archived report to s3://%s/%s", c.bucket, objectKey)
	return nil
}
