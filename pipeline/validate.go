package pipeline

import (
	"path/filepath"
	"strings"
)

// unsafeNameChars are rejected anywhere in a client-supplied filename.
// Path separators and traversal come first; the rest are shell and wildcard
// metacharacters that have no business in a filename.
var unsafeNameChars = []string{"..", "/", "\\", ":", "*", "?", "\"", "<", ">", "|", "$", "`"}

// validateConstraints checks the declared metadata of a request against
// policy. Pure function: no I/O, no side effects, first failure wins.
func validateConstraints(req *UploadRequest, cfg *UploadConfig) error {
	if req.Size > cfg.MaxSize {
		return newError(CodeFileTooLarge, "file size %d exceeds limit %d", req.Size, cfg.MaxSize)
	}

	if !containsString(cfg.AllowedMimeTypes, req.MimeType) {
		return newError(CodeInvalidMimeType, "mime type %q is not allowed", req.MimeType)
	}

	ext := strings.ToLower(filepath.Ext(req.OriginalName))
	if !containsString(cfg.AllowedExtensions, ext) {
		return newError(CodeInvalidExtension, "extension %q is not allowed", ext)
	}

	for _, c := range unsafeNameChars {
		if strings.Contains(req.OriginalName, c) {
			return newError(CodeUnsafeFilename, "filename %q contains unsafe sequence %q", req.OriginalName, c)
		}
	}

	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
