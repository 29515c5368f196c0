// Package archive keeps a copy of raw messages received over SMTP so a
// delivery log entry can be traced back to the bytes the client sent.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store writes raw messages under a key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Config selects and configures a Store.
type Config struct {
	Type   string // "dir" or "s3"
	Path   string // base directory for the dir store
	Bucket string
	Prefix string
	// Endpoint overrides the S3 endpoint, for MinIO and similar.
	Endpoint string
	Region   string
	// Static credentials. When empty the default AWS chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// New builds the Store described by cfg.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "dir":
		return NewDirStore(cfg.Path)
	case "s3":
		return NewS3StoreFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("archive: unknown store type %q", cfg.Type)
	}
}

// Key returns the archive key for a message received at t. Keys are grouped
// by UTC day.
func Key(messageID uuid.UUID, t time.Time) string {
	return t.UTC().Format("2006/01/02") + "/" + messageID.String() + ".eml"
}
