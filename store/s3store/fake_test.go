package s3store_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/Jumpaku/go-objectfs/store/s3store"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data        []byte
	contentType string
}

// fakeAPI serves single-part S3 calls from memory. Multipart calls are not implemented.
type fakeAPI struct {
	s3store.API

	mu       sync.Mutex
	bucket   string
	objects  map[string]fakeObject
	pageSize int
	listErr  error
	copies   []string
}

func newFakeAPI(bucket string) *fakeAPI {
	return &fakeAPI{bucket: bucket, objects: map[string]fakeObject{}, pageSize: 1000}
}

func (f *fakeAPI) checkBucket(bucket *string) error {
	if aws.ToString(bucket) != f.bucket {
		return &types.NoSuchBucket{Message: aws.String("no such bucket")}
	}
	return nil
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	prefix, delimiter, token := aws.ToString(in.Prefix), aws.ToString(in.Delimiter), aws.ToString(in.ContinuationToken)
	pageSize := f.pageSize
	if in.MaxKeys != nil && int(*in.MaxKeys) < pageSize {
		pageSize = int(*in.MaxKeys)
	}

	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	out := &s3.ListObjectsV2Output{}
	last, count := "", 0
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if token != "" && (key <= token || delimiter != "" && strings.HasSuffix(token, delimiter) && strings.HasPrefix(key, token)) {
			continue
		}
		item := key
		isPrefix := false
		if delimiter != "" {
			if i := strings.Index(key[len(prefix):], delimiter); i >= 0 {
				item = key[:len(prefix)+i+len(delimiter)]
				isPrefix = true
			}
		}
		if item == last {
			continue
		}
		if count == pageSize {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(last)
			return out, nil
		}
		if isPrefix {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(item)})
		} else {
			size := int64(len(f.objects[key].data))
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key), Size: aws.Int64(size)})
		}
		last = item
		count++
	}
	out.IsTruncated = aws.Bool(false)
	return out, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	var data []byte
	if in.Body != nil {
		var err error
		if data, err = io.ReadAll(in.Body); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, contentType: aws.ToString(in.ContentType)}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	source := aws.ToString(in.CopySource)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, source)
	rest, ok := strings.CutPrefix(source, f.bucket+"/")
	if !ok {
		return nil, errors.New("copy source outside of bucket")
	}
	srcKey, err := url.PathUnescape(rest)
	if err != nil {
		return nil, err
	}
	src, ok := f.objects[srcKey]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	f.objects[aws.ToString(in.Key)] = src
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("not found")}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(o.data))),
		ContentType:   aws.String(o.contentType),
	}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(o.data))}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}
