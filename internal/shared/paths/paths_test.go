package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserRoot(t *testing.T) {
	assert.Equal(t, "/users/alice", UserRoot("alice"))
	assert.Equal(t, "/users/alice/globalState.json", GlobalStatePath("alice"))
	assert.Equal(t, "/users/alice/workspaceState.json", WorkspaceStatePath("alice"))
}

func TestIsPathOwnedBy(t *testing.T) {
	assert.True(t, IsPathOwnedBy("alice", "/users/alice"))
	assert.True(t, IsPathOwnedBy("alice", "/users/alice/docs/notes.txt"))
	assert.True(t, IsPathOwnedBy("alice", "/users/alice/docs/../file.txt"))

	assert.False(t, IsPathOwnedBy("alice", ""))
	assert.False(t, IsPathOwnedBy("", "/users/alice/file.txt"))
	assert.False(t, IsPathOwnedBy("alice", "/users/bob/file.txt"))
	assert.False(t, IsPathOwnedBy("alice", "/users/alicedata/file.txt"))
	assert.False(t, IsPathOwnedBy("alice", "/etc/passwd"))
	assert.False(t, IsPathOwnedBy("alice", "/users/alice/../bob/file.txt"))
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("alice"))
	assert.NoError(t, ValidateUserID("user-123"))

	assert.Error(t, ValidateUserID(""))
	assert.Error(t, ValidateUserID("   "))
	assert.Error(t, ValidateUserID("/alice"))
	assert.Error(t, ValidateUserID("../alice"))
	assert.Error(t, ValidateUserID("alice/evil"))
}
