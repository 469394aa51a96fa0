package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	return New(root, zap.NewNop()), root
}

func imageConfig(root string) *UploadConfig {
	return &UploadConfig{
		MaxSize:           5 * 1024 * 1024,
		AllowedMimeTypes:  []string{"image/jpeg", "image/jpg", "image/png", "text/plain"},
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".txt"},
		StorageRoot:       root,
		PublicURLPrefix:   "/static/uploads",
		EnableThreatScan:  true,
		EnableProcessing:  true,
		MaxWidth:          1024,
		MaxHeight:         1024,
		Quality:           85,
	}
}

func pngRequest(t *testing.T, field string) *UploadRequest {
	t.Helper()
	data := encodeTestImage(t, 64, 48, imaging.PNG)
	return &UploadRequest{
		OriginalName: "photo.png",
		MimeType:     "image/png",
		Size:         int64(len(data)),
		FieldName:    field,
		Data:         data,
	}
}

func textRequest(name, body string) *UploadRequest {
	return &UploadRequest{
		OriginalName: name,
		MimeType:     "text/plain",
		Size:         int64(len(body)),
		FieldName:    "attachment",
		Data:         []byte(body),
	}
}

func TestProcessUploadCommitsAndHashes(t *testing.T) {
	p, root := newTestPipeline(t)
	cfg := imageConfig(root)

	rec, err := p.ProcessUpload(pngRequest(t, "avatar"), cfg)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^avatars/\d{4}/\d{2}/\d{2}/\d+-[0-9a-f]{16}\.png$`), rec.RelativePath)
	assert.Equal(t, "/static/uploads/"+rec.RelativePath, rec.URL)
	assert.Equal(t, 64, rec.Width)
	assert.Equal(t, 48, rec.Height)

	// Round-trip: hashing the stored bytes reproduces record.Hash.
	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rec.RelativePath)))
	require.NoError(t, err)
	sum := sha256.Sum256(stored)
	assert.Equal(t, hex.EncodeToString(sum[:]), rec.Hash)
	assert.Equal(t, int64(len(stored)), rec.Size)
}

func TestProcessUploadOversizedWritesNothing(t *testing.T) {
	p, root := newTestPipeline(t)
	cfg := imageConfig(root)
	cfg.MaxSize = 2 * 1024 * 1024

	req := textRequest("big.txt", "x")
	req.Size = 3 * 1024 * 1024

	_, err := p.ProcessUpload(req, cfg)
	assert.Equal(t, CodeFileTooLarge, CodeOf(err))
	assertEmptyTree(t, root)
}

func TestProcessUploadExecutableRejectedWithScanDisabled(t *testing.T) {
	p, root := newTestPipeline(t)
	cfg := imageConfig(root)
	cfg.EnableThreatScan = false

	req := textRequest("note.txt", "")
	req.Data = append([]byte{0x7F, 'E', 'L', 'F'}, bytes.Repeat([]byte{0}, 16)...)
	req.Size = int64(len(req.Data))

	_, err := p.ProcessUpload(req, cfg)
	assert.Equal(t, CodeInvalidContent, CodeOf(err))
	assertEmptyTree(t, root)
}

func TestProcessUploadThreatScanGating(t *testing.T) {
	// Padding keeps the marker out of the sniffer's header window so the
	// policy flag alone decides the outcome.
	body := string(bytes.Repeat([]byte{'A'}, 60)) + "<script>eval(document.cookie)</script>"

	p, root := newTestPipeline(t)
	cfg := imageConfig(root)

	cfg.EnableThreatScan = true
	_, err := p.ProcessUpload(textRequest("a.txt", body), cfg)
	assert.Equal(t, CodeSecurityThreat, CodeOf(err))

	cfg.EnableThreatScan = false
	rec, err := p.ProcessUpload(textRequest("a.txt", body), cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Hash)
}

func TestProcessUploadMismatchedDeclarationRejected(t *testing.T) {
	p, root := newTestPipeline(t)
	cfg := imageConfig(root)

	req := pngRequest(t, "avatar")
	req.OriginalName = "photo.jpg"
	req.MimeType = "image/jpeg" // PNG bytes declared as JPEG

	_, err := p.ProcessUpload(req, cfg)
	assert.Equal(t, CodeInvalidContent, CodeOf(err))
	assertEmptyTree(t, root)
}

func TestProcessUploadCleansUpOnPersistFailure(t *testing.T) {
	p, _ := newTestPipeline(t)
	cfg := imageConfig("")

	// Point the storage root below a regular file so directory creation
	// fails after validation, sniffing and naming all succeeded.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.StorageRoot = filepath.Join(blocker, "uploads")

	_, err := p.ProcessUpload(textRequest("a.txt", "hello"), cfg)
	assert.Equal(t, CodeStorageFailed, CodeOf(err))

	// Nothing but the blocker file exists.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "blocker", entries[0].Name())
}

func TestProcessBatchPartialFailure(t *testing.T) {
	p, root := newTestPipeline(t)
	cfg := imageConfig(root)

	malicious := textRequest("evil.txt",
		string(bytes.Repeat([]byte{'B'}, 60))+"<?php system('id'); ?>")
	reqs := []*UploadRequest{
		textRequest("one.txt", "first"),
		malicious,
		textRequest("two.txt", "second"),
	}

	records, err := p.ProcessBatch(reqs, cfg)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestProcessBatchTotalFailure(t *testing.T) {
	p, root := newTestPipeline(t)
	cfg := imageConfig(root)

	bad := func(name string) *UploadRequest {
		return textRequest(name, string(bytes.Repeat([]byte{'C'}, 60))+"<?php evil(); ?>")
	}
	reqs := []*UploadRequest{bad("a.txt"), bad("b.txt"), bad("c.txt")}

	records, err := p.ProcessBatch(reqs, cfg)
	assert.Nil(t, records)
	require.Equal(t, CodeBatchUploadFailed, CodeOf(err))

	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Len(t, pe.Detail, 3)
	assertEmptyTree(t, root)
}

func TestProcessBatchEmptyInput(t *testing.T) {
	p, root := newTestPipeline(t)
	records, err := p.ProcessBatch(nil, imageConfig(root))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteStoredLifecycle(t *testing.T) {
	p, root := newTestPipeline(t)
	cfg := imageConfig(root)

	rec, err := p.ProcessUpload(textRequest("doc.txt", "body"), cfg)
	require.NoError(t, err)

	removed, err := p.DeleteStored(rec.RelativePath)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = p.DeleteStored(rec.RelativePath)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = p.DeleteStored("../outside")
	assert.Equal(t, CodeInvalidPath, CodeOf(err))
}

func TestStatStoredLifecycle(t *testing.T) {
	p, root := newTestPipeline(t)
	cfg := imageConfig(root)

	rec, err := p.ProcessUpload(textRequest("doc.txt", "body"), cfg)
	require.NoError(t, err)

	stat, err := p.StatStored(rec.RelativePath)
	require.NoError(t, err)
	require.NotNil(t, stat)
	assert.Equal(t, rec.Size, stat.Size)

	stat, err = p.StatStored("misc/absent.txt")
	require.NoError(t, err)
	assert.Nil(t, stat)
}

// assertEmptyTree fails if any regular file exists under root.
func assertEmptyTree(t *testing.T, root string) {
	t.Helper()
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			t.Errorf("unexpected file left in storage tree: %s", path)
		}
		return nil
	})
	require.NoError(t, err)
}
