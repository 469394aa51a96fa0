package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() *UploadConfig {
	return &UploadConfig{
		MaxSize:           2 * 1024 * 1024,
		AllowedMimeTypes:  []string{"image/jpeg", "image/jpg", "image/png", "text/plain"},
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".txt"},
	}
}

func TestValidateConstraints(t *testing.T) {
	tests := []struct {
		name     string
		req      UploadRequest
		wantCode ErrorCode
	}{
		{
			name: "accepts valid request",
			req:  UploadRequest{OriginalName: "photo.jpg", MimeType: "image/jpeg", Size: 1024},
		},
		{
			name:     "rejects oversized file",
			req:      UploadRequest{OriginalName: "big.jpg", MimeType: "image/jpeg", Size: 3 * 1024 * 1024},
			wantCode: CodeFileTooLarge,
		},
		{
			name:     "rejects disallowed mime type",
			req:      UploadRequest{OriginalName: "page.html", MimeType: "text/html", Size: 10},
			wantCode: CodeInvalidMimeType,
		},
		{
			name:     "rejects disallowed extension",
			req:      UploadRequest{OriginalName: "shell.php", MimeType: "text/plain", Size: 10},
			wantCode: CodeInvalidExtension,
		},
		{
			name:     "extension check is case insensitive",
			req:      UploadRequest{OriginalName: "PHOTO.JPG", MimeType: "image/jpeg", Size: 10},
			wantCode: "",
		},
		{
			name:     "rejects traversal in filename",
			req:      UploadRequest{OriginalName: "..secret.txt", MimeType: "text/plain", Size: 10},
			wantCode: CodeUnsafeFilename,
		},
		{
			name:     "rejects shell metacharacters",
			req:      UploadRequest{OriginalName: "a$b.txt", MimeType: "text/plain", Size: 10},
			wantCode: CodeUnsafeFilename,
		},
		{
			name:     "rejects wildcard characters",
			req:      UploadRequest{OriginalName: "a*.txt", MimeType: "text/plain", Size: 10},
			wantCode: CodeUnsafeFilename,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConstraints(&tt.req, testConfig())
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, CodeOf(err))
		})
	}
}

func TestValidateConstraintsSizeBoundary(t *testing.T) {
	cfg := testConfig()

	exact := UploadRequest{OriginalName: "a.txt", MimeType: "text/plain", Size: cfg.MaxSize}
	assert.NoError(t, validateConstraints(&exact, cfg))

	over := UploadRequest{OriginalName: "a.txt", MimeType: "text/plain", Size: cfg.MaxSize + 1}
	assert.Equal(t, CodeFileTooLarge, CodeOf(validateConstraints(&over, cfg)))
}

func TestValidateConstraintsCheckOrder(t *testing.T) {
	// An oversized file with a bad extension must report the size first.
	cfg := testConfig()
	req := UploadRequest{OriginalName: "x.exe", MimeType: "application/zip", Size: cfg.MaxSize * 2}
	assert.Equal(t, CodeFileTooLarge, CodeOf(validateConstraints(&req, cfg)))
}
