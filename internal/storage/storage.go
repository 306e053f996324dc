package storage

import "context"

// BlobStore holds uploaded task images addressed by a relative path such as
// "tasks/<name>.png". Paths are served statically under the /storage prefix.
type BlobStore interface {
	// Put stores data and returns the path it can be retrieved under.
	// originalName is only consulted for its extension.
	Put(ctx context.Context, data []byte, originalName string) (string, error)

	// Delete removes the object at path. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, path string) error
}
