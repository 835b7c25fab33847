package launchbase

import (
	"context"
	"net/url"
	"path"
	"strings"
)

// BlobBackend stores opaque documents by key. Snapshots are written through
// it so the same code saves to a directory, S3, MinIO or GCS.
type BlobBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// List returns every key under prefix, relative to the backend root.
	List(ctx context.Context, prefix string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// Blob location schemes
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
	SchemeGCS  = "gs"
)

// BlobLocation is a parsed blob URI such as s3://bucket/prefix,
// gs://bucket/prefix, file:///var/lib/launchbase or a bare directory path.
type BlobLocation struct {
	Scheme string
	Bucket string // bucket name, or base directory for file locations
	Prefix string // key prefix inside the bucket
}

// ParseBlobLocation parses and validates a blob URI.
func ParseBlobLocation(uri string) (BlobLocation, error) {
	if uri == "" {
		return BlobLocation{}, WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "location",
			"reason": "blob location is required",
		})
	}
	if !strings.Contains(uri, "://") {
		return BlobLocation{Scheme: SchemeFile, Bucket: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return BlobLocation{}, WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "location",
			"value":  uri,
			"reason": err.Error(),
		})
	}

	loc := BlobLocation{Scheme: u.Scheme}
	if u.Scheme == SchemeFile {
		loc.Bucket = u.Host + u.Path
	} else {
		loc.Bucket = u.Host
		loc.Prefix = strings.Trim(u.Path, "/")
	}
	return loc, loc.Validate()
}

// Validate checks if the BlobLocation is usable
func (l BlobLocation) Validate() error {
	switch l.Scheme {
	case SchemeFile, SchemeS3, SchemeGCS:
	default:
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "scheme",
			"value":  l.Scheme,
			"reason": "unknown blob scheme",
		})
	}
	if l.Bucket == "" {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "bucket",
			"reason": "bucket/base path is required",
		})
	}
	return nil
}

// Key joins the location prefix and name.
func (l BlobLocation) Key(name string) string {
	if l.Prefix == "" {
		return name
	}
	return path.Join(l.Prefix, name)
}

func (l BlobLocation) String() string {
	if l.Scheme == SchemeFile {
		return l.Bucket
	}
	return l.Scheme + "://" + path.Join(l.Bucket, l.Prefix)
}

// OpenBlobBackend connects to the backend named by loc.
func OpenBlobBackend(ctx context.Context, loc BlobLocation, cfg Config) (BlobBackend, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	switch loc.Scheme {
	case SchemeS3:
		client, err := NewS3Client(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		return NewS3Backend(client, loc.Bucket), nil
	case SchemeGCS:
		return NewGCSBackend(ctx, GCSConfig{
			Bucket:          loc.Bucket,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
	default:
		return NewFilesystemBackend(loc.Bucket), nil
	}
}
