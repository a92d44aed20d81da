package filesystem

import (
	"errors"
	"time"
)

// ErrOutsideRoot indicates a path that, after normalization, does not fall
// under the caller's exclusive root. The filesystem proxy rejects these
// outright; they never reach the storage backend.
var ErrOutsideRoot = errors.New("path resolves outside user root")

// FileInfo is the user-visible metadata for one entry. Path is always a
// logical path under the caller's root; physical locations never leak.
type FileInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	IsDir     bool      `json:"is_dir"`
	Mode      string    `json:"mode"`
	Modified  time.Time `json:"modified"`
	MIME      string    `json:"mime,omitempty"`
	Extension string    `json:"extension,omitempty"`
}
