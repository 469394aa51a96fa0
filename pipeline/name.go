package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// categoryRule maps a field-hint substring to a storage category.
// First match wins.
type categoryRule struct {
	substr   string
	category string
}

var categoryRules = []categoryRule{
	{substr: "avatar", category: "avatars"},
	{substr: "cover", category: "games"},
	{substr: "icon", category: "games"},
	{substr: "screenshot", category: "screenshots"},
}

const defaultCategory = "misc"

// generateFileName derives a collision-resistant stored name from the current
// time and 8 random bytes. Only the extension survives from client input.
func generateFileName(originalName string) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", wrapError(CodeUploadFailed, err, "failed to generate random filename")
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(buf), ext), nil
}

// storageCategory resolves the partition for a field hint.
func storageCategory(fieldName string) string {
	lower := strings.ToLower(fieldName)
	for _, r := range categoryRules {
		if strings.Contains(lower, r.substr) {
			return r.category
		}
	}
	return defaultCategory
}

// relativeStoragePath composes category/yyyy/mm/dd/filename. The persister
// re-validates the result against the storage root before any write.
func relativeStoragePath(category, fileName string, now time.Time) string {
	return path.Join(category, now.Format("2006"), now.Format("01"), now.Format("02"), fileName)
}
