package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrObjectNotFound is returned when a key does not exist in the backend.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal operations the model store and the
// result sinks need.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	UploadObject(ctx context.Context, key string, data []byte) error
}

const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendDrive = "drive"
)

// Config selects and configures one storage backend.
type Config struct {
	Backend  string
	LocalDir string

	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool

	DriveFolderID        string
	DriveCredentialsJSON string
}

// New builds the backend named by cfg.Backend.
func New(ctx context.Context, cfg Config) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLocal:
		return NewLocalStorage(cfg.LocalDir)
	case BackendS3:
		return NewMinioStorage(cfg)
	case BackendDrive:
		return NewDriveStorage(ctx, cfg.DriveCredentialsJSON, cfg.DriveFolderID)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// JoinKey joins key segments with "/" and drops empty ones.
func JoinKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
