package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"mediavault/services/media-api/internal/config"
	domain "mediavault/services/media-api/internal/domain/media"
	"mediavault/services/media-api/internal/infrastructure/metrics"
)

const s3Backend = "s3"

var errStorageDisabled = errors.New("media storage backend is not configured; set MEDIA_S3_* to enable uploads")

// S3Storage keeps media blobs in an S3-compatible bucket.
type S3Storage struct {
	bucket        string
	publicBaseURL string
	presignTTL    time.Duration
	client        *s3.Client
	presigner     *s3.PresignClient
	log           zerolog.Logger
	disabled      bool
}

func NewS3Storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-storage").Logger()
	storage := &S3Storage{
		bucket:        cfg.S3Bucket,
		publicBaseURL: strings.TrimSuffix(cfg.S3PublicBaseURL, "/"),
		presignTTL:    cfg.S3PresignTTL,
		log:           logger,
	}

	if storage.bucket == "" || cfg.S3AccessKeyID == "" || cfg.S3SecretKey == "" {
		logger.Warn().Msg("MEDIA_S3_BUCKET or credentials are not set; media uploads will be disabled until configured")
		storage.disabled = true
		return storage, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	storage.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	storage.presigner = s3.NewPresignClient(storage.client)

	logger.Info().
		Str("bucket", storage.bucket).
		Str("endpoint", cfg.S3Endpoint).
		Bool("public_urls", storage.publicBaseURL != "").
		Msg("s3 storage initialized")
	return storage, nil
}

func (s *S3Storage) ensureEnabled() error {
	if s.disabled {
		return errStorageDisabled
	}
	return nil
}

func (s *S3Storage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (err error) {
	defer observe(s3Backend, "upload", time.Now(), &err)
	if err := s.ensureEnabled(); err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// URL returns the public object URL when a public base is configured, otherwise a presigned GET.
func (s *S3Storage) URL(ctx context.Context, key string) (ref string, err error) {
	defer observe(s3Backend, "url", time.Now(), &err)
	if err := s.ensureEnabled(); err != nil {
		return "", err
	}
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + escapeKey(key), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return req.URL, nil
}

func (s *S3Storage) Download(ctx context.Context, key string) (body io.ReadCloser, contentType string, err error) {
	defer observe(s3Backend, "download", time.Now(), &err)
	if err := s.ensureEnabled(); err != nil {
		return nil, "", err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, "", domain.ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("get object: %w", err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// Delete removes key. S3 deletes are idempotent, so existence is checked first.
func (s *S3Storage) Delete(ctx context.Context, key string) (err error) {
	defer observe(s3Backend, "delete", time.Now(), &err)
	if err := s.ensureEnabled(); err != nil {
		return err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissingObject(err) {
			return domain.ErrObjectNotFound
		}
		return fmt.Errorf("head object: %w", err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Health performs a HeadBucket request.
func (s *S3Storage) Health(ctx context.Context) error {
	if s.disabled {
		return nil
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func isMissingObject(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func observe(backend, operation string, start time.Time, err *error) {
	metrics.RecordStorageOperation(backend, operation, metrics.Outcome(*err), time.Since(start).Seconds())
}
