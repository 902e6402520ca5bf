package aws

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Put streams a payload to the bucket under key. The transfer manager splits
// large model files into multipart uploads on its own.
func (c *S3Client) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	uploader := manager.NewUploader(c.C)

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      c.Bucket,
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %q, %w", key, err)
	}

	return nil
}

// Get returns a reader over the object body. The caller must close it.
func (c *S3Client) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := c.C.GetObject(ctx, &s3.GetObjectInput{
		Bucket: c.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object %q, %w", key, err)
	}

	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}

	return out.Body, size, nil
}

// Delete removes the given objects in batches of 1000, the most a single
// DeleteObjects request accepts.
func (c *S3Client) Delete(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += 1000 {
		end := min(start+1000, len(keys))

		objects := make([]types.ObjectIdentifier, end-start)
		for i, key := range keys[start:end] {
			objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		_, err := c.C.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: c.Bucket,
			Delete: &types.Delete{
				Objects: objects,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects, %w", err)
		}
	}

	return nil
}
