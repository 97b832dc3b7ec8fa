package reportstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

const s3ContentType = "application/json"

// S3Config holds explicit construction parameters for the S3 store. For
// production use the credentials come from the default AWS chain; the
// explicit fields exist mostly for MinIO and tests.
type S3Config struct {
	Region    string
	Bucket    string
	Prefix    string // optional key prefix inside the bucket
	Endpoint  string // optional; enables a custom endpoint (e.g. MinIO)
	PathStyle bool
}

// Environment variables read by OpenS3FromEnv:
//
//	BIOT_REPORT_S3_BUCKET=<bucket> (required)
//	BIOT_REPORT_S3_PREFIX=<prefix> (optional)
//	BIOT_REPORT_S3_REGION=<region> (default us-east-1)
//	BIOT_REPORT_S3_ENDPOINT=<url> (optional, for MinIO)
//	BIOT_REPORT_S3_PATH_STYLE=true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// S3Store persists report documents as objects in a single S3 bucket, one
// object per report named after the report under an optional prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed report store from S3Config.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// OpenS3FromEnv constructs an S3 report store from process environment.
func OpenS3FromEnv(ctx context.Context) (*S3Store, error) {
	bucket := os.Getenv("BIOT_REPORT_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("BIOT_REPORT_S3_BUCKET required for the s3 report store")
	}

	return NewS3Store(ctx, S3Config{
		Bucket:    bucket,
		Prefix:    os.Getenv("BIOT_REPORT_S3_PREFIX"),
		Region:    os.Getenv("BIOT_REPORT_S3_REGION"),
		Endpoint:  os.Getenv("BIOT_REPORT_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("BIOT_REPORT_S3_PATH_STYLE"), "true"),
	})
}

func (s *S3Store) keyFor(name string) (string, error) {
	fileName, err := sanitizeReportName(name)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return fileName, nil
	}

	return strings.TrimSuffix(s.prefix, "/") + "/" + fileName, nil
}

// SaveReport uploads the report document. Create-only is emulated through a
// HeadObject check before the put; the object key serves as the storage id.
func (s *S3Store) SaveReport(ctx context.Context, report snapshot.Report) (string, error) {
	key, err := s.keyFor(report.Name)
	if err != nil {
		return "", err
	}

	if _, headErr := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); headErr == nil {
		return "", snapshot.ErrReportExists
	}

	document, err := report.MarshalDocument()
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(document),
		ContentType: aws.String(s3ContentType),
	})
	if err != nil {
		return "", err
	}

	return key, nil
}

// GetReportByName downloads and parses a stored report document.
func (s *S3Store) GetReportByName(ctx context.Context, name string) (snapshot.Report, error) {
	key, err := s.keyFor(name)
	if err != nil {
		return snapshot.Report{}, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return snapshot.Report{}, snapshot.ErrReportNotFound
		}
		return snapshot.Report{}, err
	}
	defer func() { _ = out.Body.Close() }()

	document, err := io.ReadAll(out.Body)
	if err != nil {
		return snapshot.Report{}, err
	}

	return snapshot.UnmarshalReport(document)
}

func isS3NotFound(err error) bool {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}

	return false
}

var _ snapshot.ReportStore = (*S3Store)(nil)
