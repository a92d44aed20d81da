// Package paths defines the logical per-user path layout shared across the backend.
//
// Every user owns exactly one subtree under /users; all resolved file and state
// operations for that user must fall beneath it. Keep this layout in sync with
// the storage backend's on-disk mapping.
package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Users is the mount point under which every user root lives.
const Users = "/users"

// State document filenames, one per namespace, directly under the user root.
const (
	GlobalStateFile    = "globalState.json"
	WorkspaceStateFile = "workspaceState.json"
)

// UserRoot returns the exclusive logical root for a user.
func UserRoot(userID string) string {
	return filepath.Join(Users, userID)
}

// GlobalStatePath returns the logical path of a user's global state document.
func GlobalStatePath(userID string) string {
	return filepath.Join(UserRoot(userID), GlobalStateFile)
}

// WorkspaceStatePath returns the logical path of a user's workspace state document.
func WorkspaceStatePath(userID string) string {
	return filepath.Join(UserRoot(userID), WorkspaceStateFile)
}

// IsPathOwnedBy reports whether path is syntactically rooted under the
// user's exclusive subtree. This is a defense-in-depth check layered on
// top of the filesystem proxy's own path joining, not a substitute for it.
func IsPathOwnedBy(userID, path string) bool {
	if userID == "" || path == "" {
		return false
	}
	root := UserRoot(userID)
	clean := filepath.Clean(path)
	return clean == root || strings.HasPrefix(clean, root+string(filepath.Separator))
}

// ValidateUserID checks that an identifier is usable as a path component.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if filepath.IsAbs(userID) {
		return fmt.Errorf("user ID cannot be an absolute path")
	}
	if filepath.Clean(userID) != userID || strings.ContainsRune(userID, filepath.Separator) {
		return fmt.Errorf("user ID contains invalid path components")
	}
	return nil
}
