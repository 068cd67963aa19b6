// Package store defines the object storage contract the moderation pipeline
// depends on. The core addresses objects by key only; bucket, region, and
// credential configuration belong to the concrete backends.
package store

import "context"

// ObjectStore is the narrow storage contract used by the pipeline. Keys for
// one document share the document identifier as prefix, and no two pages ever
// target the same key, so implementations need no locking discipline.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}
