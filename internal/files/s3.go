package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// maxDeleteBatch is the S3 limit of keys per DeleteObjects call.
const maxDeleteBatch = 1000

// S3Client defines the S3 operations used by S3Store.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Config contains configuration for S3 storage.
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for S3-compatible services
	ForcePathStyle  bool   // For S3-compatible services like MinIO
	Prefix          string // Key prefix, e.g. "campaignclean/uploads"
}

// S3Option configures an S3Store.
type S3Option func(*s3Options)

type s3Options struct {
	client      S3Client
	contentType string
}

// WithS3Client sets a pre-configured client. Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.client = client
	}
}

// WithContentType sets the Content-Type stored with every object.
func WithContentType(contentType string) S3Option {
	return func(o *s3Options) {
		o.contentType = contentType
	}
}

// S3Store keeps files under a key prefix of an S3 bucket.
type S3Store struct {
	client      S3Client
	bucket      string
	prefix      string
	contentType string
	logger      *slog.Logger
}

// NewS3Store creates an S3-backed store.
func NewS3Store(ctx context.Context, cfg S3Config, logger *slog.Logger, opts ...S3Option) (*S3Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("s3 store requires bucket and region")
	}
	if logger == nil {
		logger = slog.Default()
	}

	options := &s3Options{contentType: "text/csv; charset=utf-8"}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		awsOptions := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			awsOptions = append(awsOptions, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}

		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return &S3Store{
		client:      client,
		bucket:      cfg.Bucket,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		contentType: options.contentType,
		logger:      logger.With("component", "s3_store", "bucket", cfg.Bucket, "prefix", cfg.Prefix),
	}, nil
}

func (s *S3Store) key(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}
	if s.prefix == "" {
		return name, nil
	}
	return path.Join(s.prefix, name), nil
}

func (s *S3Store) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

// Put uploads r as name.
func (s *S3Store) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	key, err := s.key(name)
	if err != nil {
		return 0, err
	}

	// PutObject needs a seekable body to sign; uploads are bounded by the request limit.
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", name, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(s.contentType),
	})
	if err != nil {
		return 0, classifyS3Error(err, "put")
	}

	s.logger.DebugContext(ctx, "object stored", slog.String("key", key), slog.Int("size", len(data)))
	return int64(len(data)), nil
}

// Open downloads name.
func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ObjectInfo{}, classifyS3Error(err, "get")
	}

	return out.Body, ObjectInfo{
		Name:    name,
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}, nil
}

// Exists reports whether name is stored.
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.key(name)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = classifyS3Error(err, "head")
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes name. Deleting a missing key is not an error in S3.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return classifyS3Error(err, "delete")
}

// List returns every object under the prefix.
func (s *S3Store) List(ctx context.Context) ([]ObjectInfo, error) {
	var (
		infos []ObjectInfo
		token *string
	)
	prefix := s.listPrefix()

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, classifyS3Error(err, "list")
		}

		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			infos = append(infos, ObjectInfo{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}

		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}

	return infos, nil
}

// Cleanup deletes objects older than olderThan in batches.
func (s *S3Store) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var ids []types.ObjectIdentifier
	for _, info := range infos {
		if !expired(info.ModTime, olderThan, now) {
			continue
		}
		key, _ := s.key(info.Name)
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
	}

	removed := 0
	for start := 0; start < len(ids); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(ids))
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return removed, classifyS3Error(err, "delete")
		}
		for _, e := range out.Errors {
			s.logger.ErrorContext(ctx, "failed to delete object",
				slog.String("key", aws.ToString(e.Key)),
				slog.String("error", aws.ToString(e.Message)))
		}
		removed += end - start - len(out.Errors)
	}

	return removed, nil
}

// classifyS3Error converts S3 errors to store errors.
func classifyS3Error(err error, operation string) error {
	if err == nil {
		return nil
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, err)
		default:
			return fmt.Errorf("%s operation failed (code: %s): %w", operation, apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}
