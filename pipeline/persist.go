package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// resolveStoragePath turns a relative storage path into an absolute one,
// rejecting anything that escapes the configured root. Defense in depth: the
// namer only ever produces safe paths, but delete/stat accept caller input.
func resolveStoragePath(root, relPath string) (string, error) {
	if relPath == "" {
		return "", newError(CodeInvalidPath, "empty storage path")
	}
	if strings.Contains(relPath, "..") || strings.Contains(relPath, "~") ||
		strings.ContainsAny(relPath, "$`|;&<>") {
		return "", newError(CodeInvalidPath, "storage path %q contains traversal or shell characters", relPath)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", wrapError(CodeInvalidPath, err, "cannot resolve storage root %q", root)
	}
	abs := filepath.Join(absRoot, filepath.FromSlash(relPath))
	if abs != absRoot && !strings.HasPrefix(abs, absRoot+string(os.PathSeparator)) {
		return "", newError(CodeInvalidPath, "storage path %q escapes the storage root", relPath)
	}
	return abs, nil
}

// persistBytes commits data under root/relPath, creating intermediate
// directories idempotently, and returns the hex SHA-256 of exactly the bytes
// written. The hash fingerprints the stored representation, not the upload.
func persistBytes(root, relPath string, data []byte) (string, error) {
	abs, err := resolveStoragePath(root, relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", wrapError(CodeStorageFailed, err, "failed to create storage directory")
	}

	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return "", wrapError(CodeStorageFailed, err, "failed to write %q", relPath)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// removeStored deletes a committed file. Missing files are not an error:
// the second return value reports whether anything was removed.
func removeStored(root, relPath string) (bool, error) {
	abs, err := resolveStoragePath(root, relPath)
	if err != nil {
		return false, err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, wrapError(CodeStorageFailed, err, "failed to remove %q", relPath)
	}
	return true, nil
}

// statStored returns size and mtime for a committed file, or nil when it
// does not exist.
func statStored(root, relPath string) (*FileStat, error) {
	abs, err := resolveStoragePath(root, relPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, wrapError(CodeStorageFailed, err, "failed to stat %q", relPath)
	}
	return &FileStat{Size: info.Size(), ModTime: info.ModTime()}, nil
}
