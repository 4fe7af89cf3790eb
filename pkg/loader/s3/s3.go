// Package s3 loads source bytes from an S3-compatible bucket, for async
// jobs whose uploads were staged in object storage.
package s3

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"

	"github.com/chenraccah/semantic-network-analyzer/pkg/loader"
)

// S3SourceLoader is a ByteLoader that reads source contents from an S3
// bucket, treating the source's Path as the object key. Fetched objects
// are cached for the loader's lifetime and concurrent fetches of the same
// key are collapsed into one request.
type S3SourceLoader struct {
	bucket string
	client *s3.Client

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewS3SourceLoaderWithClient wraps an existing, preconfigured s3.Client.
func NewS3SourceLoaderWithClient(bucket string, client *s3.Client) *S3SourceLoader {
	return &S3SourceLoader{
		bucket: bucket,
		client: client,
		cache:  make(map[string][]byte),
	}
}

// GetFileBytes retrieves the source's object from the configured bucket.
// It implements the ByteLoader interface.
func (l *S3SourceLoader) GetFileBytes(ctx context.Context, src loader.TextSource) ([]byte, error) {
	key := loader.CacheKey(src)
	if data, ok := l.cached(key); ok {
		return data, nil
	}

	result, err, _ := l.group.Do(key, func() (any, error) {
		// Re-check under the flight; an earlier caller may have filled it.
		if data, ok := l.cached(key); ok {
			return data, nil
		}
		data, err := l.fetch(ctx, src.Path)
		if err != nil {
			return nil, err
		}
		l.cacheMu.Lock()
		l.cache[key] = data
		l.cacheMu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (l *S3SourceLoader) cached(key string) ([]byte, bool) {
	l.cacheMu.RLock()
	defer l.cacheMu.RUnlock()
	data, ok := l.cache[key]
	return data, ok
}

func (l *S3SourceLoader) fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
