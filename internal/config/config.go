package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultMaxUploadSize is the ingest limit written by NewConfig (2 GiB).
const DefaultMaxUploadSize int64 = 2 << 30

// Config represents the main configuration for mv.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	Catalog   CatalogConfig   `toml:"catalog"`
	BlobStore BlobStoreConfig `toml:"blob_store"`
	Ingest    IngestConfig    `toml:"ingest"`
	Library   LibraryConfig   `toml:"library"`
	Tracing   TracingConfig   `toml:"tracing"`
}

// CatalogConfig represents configuration for the metadata catalog.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CatalogConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// BlobStoreConfig represents configuration for the blob store backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobStoreConfig struct {
	Type string `toml:"type"` // "filesystem", "memory", "s3" or "minio"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3PathStyle bool   `toml:"s3_path_style,omitempty"`
	// Static S3 credentials; the default AWS chain is used when empty.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// MinIO-specific fields (only used when Type == "minio")
	MinioEndpoint  string `toml:"minio_endpoint,omitempty"`
	MinioBucket    string `toml:"minio_bucket,omitempty"`
	MinioPrefix    string `toml:"minio_prefix,omitempty"`
	MinioAccessKey string `toml:"minio_access_key,omitempty"`
	MinioSecretKey string `toml:"minio_secret_key,omitempty"`
	MinioUseSSL    bool   `toml:"minio_use_ssl,omitempty"`
}

// IngestConfig holds the upload admission rules.
type IngestConfig struct {
	MaxSize      int64    `toml:"max_size"`      // bytes; must be positive
	AllowedTypes []string `toml:"allowed_types"` // media types or "type/*" patterns
	// Ignore lists patterns skipped when uploading a local directory.
	Ignore []string `toml:"ignore,omitempty"`
}

// LibraryConfig holds folder and search policies.
type LibraryConfig struct {
	FolderDeletePolicy  string `toml:"folder_delete_policy"` // "detach" (default), "cascade" or "reject"
	SearchCaseSensitive bool   `toml:"search_case_sensitive"`
}

// TracingConfig configures the OTLP/HTTP span exporter.
type TracingConfig struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint,omitempty"` // host:port of the collector
	Insecure    bool   `toml:"insecure,omitempty"`
	ServiceName string `toml:"service_name,omitempty"`
}

// NewConfig creates a new Config rooted at baseDir with local storage defaults.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		BlobStore: BlobStoreConfig{
			Type: "filesystem",
			Root: filepath.Join(baseDir, "blobs"),
		},
		Ingest: IngestConfig{
			MaxSize:      DefaultMaxUploadSize,
			AllowedTypes: []string{"video/*", "audio/*", "image/*"},
			Ignore:       []string{".DS_Store", "Thumbs.db", "*.part"},
		},
		Library: LibraryConfig{
			FolderDeletePolicy: "detach",
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			Insecure:    true,
			ServiceName: "mediavault",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Credentials may live in the file.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. An existing file is never overwritten.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
