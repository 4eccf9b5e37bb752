package vault

import (
	"context"
	"fmt"

	"mediavault/internal/config"
	"mediavault/internal/mv"
)

// NewBlobStoreFromConfig creates a BlobStore implementation based on cfg.Type.
func NewBlobStoreFromConfig(ctx context.Context, cfg config.BlobStoreConfig) (mv.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem blob store requires root to be set")
		}
		v, err := NewFileSystemVault(cfg.Root)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "s3":
		v, err := NewS3Vault(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	case "minio":
		v, err := NewMinioVault(ctx, MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			Bucket:    cfg.MinioBucket,
			Prefix:    cfg.MinioPrefix,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
