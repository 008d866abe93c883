package linkdex

import "context"

// RemoteFile is a file listed inside a linked storage-provider folder.
type RemoteFile struct {
	Name string
	Size int64
	URL  string
}

// FileResolver lists the files behind a catalog link. Implementations talk
// to the storage provider; linkdex only depends on this interface.
type FileResolver interface {
	// ResolveFiles returns the files reachable from link. externalID is the
	// folder id extracted by NormalizeLink and may be empty.
	// Returns ENOTFOUND if the folder does not exist.
	ResolveFiles(ctx context.Context, link, externalID string) ([]RemoteFile, error)
}
