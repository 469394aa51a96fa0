package config

import (
	"strings"

	"github.com/cppla/mediagate/pipeline"
)

const mb = int64(1024 * 1024)

var imageMimeTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// defaultUploadPolicies covers the platform's upload fields when
// config.json does not override them.
func defaultUploadPolicies() []FieldPolicy {
	return []FieldPolicy{
		{
			Field:             "avatar",
			MaxSizeMB:         2,
			AllowedMimeTypes:  imageMimeTypes,
			AllowedExtensions: imageExtensions,
			EnableThreatScan:  true,
			EnableProcessing:  true,
			MaxWidth:          512,
			MaxHeight:         512,
			Quality:           85,
		},
		{
			Field:             "cover",
			MaxSizeMB:         5,
			AllowedMimeTypes:  imageMimeTypes,
			AllowedExtensions: imageExtensions,
			EnableThreatScan:  true,
			EnableProcessing:  true,
			MaxWidth:          1920,
			MaxHeight:         1080,
			Quality:           85,
		},
		{
			Field:             "icon",
			MaxSizeMB:         1,
			AllowedMimeTypes:  imageMimeTypes,
			AllowedExtensions: imageExtensions,
			EnableThreatScan:  true,
			EnableProcessing:  true,
			MaxWidth:          256,
			MaxHeight:         256,
			Quality:           90,
		},
		{
			Field:             "screenshot",
			MaxSizeMB:         10,
			AllowedMimeTypes:  imageMimeTypes,
			AllowedExtensions: imageExtensions,
			EnableThreatScan:  true,
			EnableProcessing:  true,
			MaxWidth:          2560,
			MaxHeight:         1440,
			Quality:           80,
		},
		{
			Field:             "attachment",
			MaxSizeMB:         20,
			AllowedMimeTypes:  append([]string{"application/pdf", "text/plain", "application/zip"}, imageMimeTypes...),
			AllowedExtensions: append([]string{".pdf", ".txt", ".zip"}, imageExtensions...),
			EnableThreatScan:  true,
			EnableProcessing:  false,
		},
	}
}

// ResolveUploadConfig maps a logical field name to the pipeline policy for
// it. Matching is by substring over the configured policies, first match
// wins; the "attachment" policy doubles as the fallback.
func ResolveUploadConfig(fieldHint string) pipeline.UploadConfig {
	c := Get()
	lower := strings.ToLower(fieldHint)

	chosen := c.UploadPolicies[len(c.UploadPolicies)-1]
	for _, p := range c.UploadPolicies {
		if p.Field != "" && strings.Contains(lower, strings.ToLower(p.Field)) {
			chosen = p
			break
		}
	}

	return pipeline.UploadConfig{
		MaxSize:           int64(chosen.MaxSizeMB) * mb,
		AllowedMimeTypes:  chosen.AllowedMimeTypes,
		AllowedExtensions: chosen.AllowedExtensions,
		StorageRoot:       c.StorageRoot,
		PublicURLPrefix:   c.PublicURLPrefix,
		EnableThreatScan:  chosen.EnableThreatScan,
		EnableProcessing:  chosen.EnableProcessing,
		MaxWidth:          chosen.MaxWidth,
		MaxHeight:         chosen.MaxHeight,
		Quality:           chosen.Quality,
	}
}
