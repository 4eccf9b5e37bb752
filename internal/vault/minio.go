package vault

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"mediavault/internal/mv"
)

// MinioOptions configures a MinioVault.
type MinioOptions struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioVault stores blobs as objects in a MinIO bucket.
type MinioVault struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioVault connects to MinIO and creates the bucket if it does not exist.
func NewMinioVault(ctx context.Context, opts MinioOptions) (*MinioVault, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("minio blob store requires minio_endpoint and minio_bucket to be set")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	prefix := opts.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &MinioVault{client: client, bucket: opts.Bucket, prefix: prefix}, nil
}

func (v *MinioVault) objectKey(key string) string {
	return v.prefix + key
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (v *MinioVault) Put(ctx context.Context, key string, r io.Reader) (_ int64, err error) {
	if err := checkKey(key); err != nil {
		return 0, err
	}
	ctx, span := startSpan(ctx, "minio.put_object", key)
	defer func() { endSpan(span, err) }()

	exists, err := v.Exists(ctx, key)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("storage key %q already exists: %w", key, mv.ErrConflict)
	}

	// Size -1 streams as a multipart upload.
	info, err := v.client.PutObject(ctx, v.bucket, v.objectKey(key), r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload object: %w", err)
	}
	return info.Size, nil
}

func (v *MinioVault) Get(ctx context.Context, key string) (_ io.ReadCloser, err error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "minio.get_object", key)
	defer func() { endSpan(span, err) }()

	obj, err := v.client.GetObject(ctx, v.bucket, v.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("blob %q: %w", key, mv.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj, nil
}

func (v *MinioVault) Delete(ctx context.Context, key string) (err error) {
	if err := checkKey(key); err != nil {
		return err
	}
	ctx, span := startSpan(ctx, "minio.delete_object", key)
	defer func() { endSpan(span, err) }()

	if err := v.client.RemoveObject(ctx, v.bucket, v.objectKey(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (v *MinioVault) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}

	_, err := v.client.StatObject(ctx, v.bucket, v.objectKey(key), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// List returns keys directly under the prefix.
func (v *MinioVault) List(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range v.client.ListObjects(ctx, v.bucket, minio.ListObjectsOptions{Prefix: v.prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing objects: %w", obj.Err)
		}
		key := strings.TrimPrefix(obj.Key, v.prefix)
		if key == "" || strings.Contains(key, "/") {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ValidateSetup verifies the bucket still exists.
func (v *MinioVault) ValidateSetup() error {
	exists, err := v.client.BucketExists(context.Background(), v.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket %s not accessible: %w", v.bucket, err)
	}
	if !exists {
		return fmt.Errorf("minio bucket %s does not exist", v.bucket)
	}
	return nil
}

var _ mv.BlobStore = (*MinioVault)(nil)
