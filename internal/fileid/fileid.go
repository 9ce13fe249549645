// Package fileid derives document IDs. Watched files get a deterministic ID
// from their path so re-ingesting a file replaces its earlier document.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// namespace scopes path-derived IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("yomu:file"))

// ForPath returns a stable document ID for the given absolute path.
// The same cleaned path always yields the same ID.
func ForPath(absolutePath string) string {
	return uuid.NewSHA1(namespace, []byte(filepath.Clean(absolutePath))).String()
}

// New returns a random document ID for uploads.
func New() string {
	return uuid.New().String()
}
