package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistBytesRoundTripHash(t *testing.T) {
	root := t.TempDir()
	data := []byte("stored representation")

	hash, err := persistBytes(root, "misc/2026/01/02/abc.txt", data)
	require.NoError(t, err)

	stored, err := os.ReadFile(filepath.Join(root, "misc", "2026", "01", "02", "abc.txt"))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	sum := sha256.Sum256(stored)
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)
}

func TestPersistBytesCreatesDirectoriesIdempotently(t *testing.T) {
	root := t.TempDir()

	_, err := persistBytes(root, "a/b/c/one.txt", []byte("1"))
	require.NoError(t, err)
	_, err = persistBytes(root, "a/b/c/two.txt", []byte("2"))
	require.NoError(t, err)
}

func TestResolveStoragePathRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"",
		"../escape.txt",
		"a/../../escape.txt",
		"~/escape.txt",
		"a/$HOME/x",
		"a/`id`/x",
		"a|b",
	} {
		_, err := resolveStoragePath(root, rel)
		assert.Equal(t, CodeInvalidPath, CodeOf(err), "path %q", rel)
	}
}

func TestResolveStoragePathAcceptsNormalPaths(t *testing.T) {
	root := t.TempDir()
	abs, err := resolveStoragePath(root, "avatars/2026/03/07/1-aa.png")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
}

func TestRemoveStored(t *testing.T) {
	root := t.TempDir()
	_, err := persistBytes(root, "misc/x.txt", []byte("x"))
	require.NoError(t, err)

	removed, err := removeStored(root, "misc/x.txt")
	require.NoError(t, err)
	assert.True(t, removed)

	// Second delete: gone already, false without error.
	removed, err = removeStored(root, "misc/x.txt")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStatStored(t *testing.T) {
	root := t.TempDir()
	_, err := persistBytes(root, "misc/y.txt", []byte("hello"))
	require.NoError(t, err)

	stat, err := statStored(root, "misc/y.txt")
	require.NoError(t, err)
	require.NotNil(t, stat)
	assert.Equal(t, int64(5), stat.Size)
	assert.False(t, stat.ModTime.IsZero())

	stat, err = statStored(root, "misc/absent.txt")
	require.NoError(t, err)
	assert.Nil(t, stat)
}
