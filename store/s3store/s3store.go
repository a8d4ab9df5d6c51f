// Package s3store implements objectfs.Gateway on an S3-compatible object store such as AWS S3 or MinIO.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"

	objectfs "github.com/Jumpaku/go-objectfs"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const maxKeysPerPage = 1000

// API is the subset of *s3.Client used by Store.
type API interface {
	s3.ListObjectsV2APIClient
	manager.UploadAPIClient
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds the connection settings of a bucket.
// Empty credentials fall back to the default AWS credential chain.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// UsePathStyle addresses the bucket in the URL path, as MinIO and most self-hosted stores require.
	UsePathStyle bool
}

// Store is an objectfs.Gateway bound to one bucket.
type Store struct {
	client   API
	uploader *manager.Uploader
	bucket   string
}

// Verify interface implementation at compile time.
var _ objectfs.Gateway = (*Store)(nil)

// New creates a Store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		config.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewFromClient(client, cfg.Bucket), nil
}

// NewFromClient creates a Store using an existing client.
func NewFromClient(client API, bucket string) *Store {
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}
}

func (s *Store) List(ctx context.Context, prefix string, opts objectfs.ListOptions) iter.Seq2[objectfs.ObjectInfo, error] {
	return func(yield func(objectfs.ObjectInfo, error) bool) {
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(prefix),
		}
		if !opts.Recursive {
			input.Delimiter = aws.String("/")
		}
		if opts.Limit > 0 {
			input.MaxKeys = aws.Int32(int32(min(opts.Limit, maxKeysPerPage)))
		}

		emitted := 0
		paginator := s3.NewListObjectsV2Paginator(s.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(objectfs.ObjectInfo{}, fmt.Errorf("failed to list '%s': %w", prefix, err))
				return
			}
			for info := range mergePage(page) {
				if opts.Limit > 0 && emitted >= opts.Limit {
					return
				}
				emitted++
				if !yield(info, nil) {
					return
				}
			}
		}
	}
}

// mergePage yields objects and common prefixes of one page in key order.
func mergePage(page *s3.ListObjectsV2Output) iter.Seq[objectfs.ObjectInfo] {
	return func(yield func(objectfs.ObjectInfo) bool) {
		objects, prefixes := page.Contents, page.CommonPrefixes
		for len(objects) > 0 || len(prefixes) > 0 {
			var info objectfs.ObjectInfo
			if len(prefixes) == 0 || len(objects) > 0 && aws.ToString(objects[0].Key) < aws.ToString(prefixes[0].Prefix) {
				info = objectInfo(objects[0])
				objects = objects[1:]
			} else {
				info = objectfs.ObjectInfo{Key: aws.ToString(prefixes[0].Prefix), IsDir: true}
				prefixes = prefixes[1:]
			}
			if !yield(info) {
				return
			}
		}
	}
}

func objectInfo(o types.Object) objectfs.ObjectInfo {
	key := aws.ToString(o.Key)
	return objectfs.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(o.Size),
		IsDir:        strings.HasSuffix(key, "/"),
		LastModified: aws.ToTime(o.LastModified),
	}
}

// Put streams body to key. Bodies larger than the uploader part size are sent as multipart uploads,
// so size is not required up front.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to put '%s': %w", key, err)
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(s.bucket, srcKey)),
	})
	if err != nil {
		return wrap("copy", srcKey, err)
	}
	return nil
}

// copySource returns the URL-encoded "bucket/key" form expected by CopyObject.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

func (s *Store) Stat(ctx context.Context, key string) (objectfs.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return objectfs.ObjectInfo{}, wrap("stat", key, err)
	}
	return objectfs.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		IsDir:        strings.HasSuffix(key, "/"),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrap("get", key, err)
	}
	return out.Body, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return wrap("delete", key, err)
	}
	return nil
}

func wrap(op, key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("object '%s': %w", key, errors.Join(objectfs.ErrNotFound, err))
	}
	return fmt.Errorf("failed to %s '%s': %w", op, key, err)
}

func isNotFound(err error) bool {
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
