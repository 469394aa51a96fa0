// Package pipeline implements the secure file-ingestion pipeline: the only
// place in the platform where untrusted binary input is parsed, classified
// and committed to durable storage. Every stage returns a tagged
// PipelineError and any failure removes whatever was already written.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// uploadState tracks pipeline progress for one file.
type uploadState string

const (
	stateReceived        uploadState = "RECEIVED"
	stateValidated       uploadState = "VALIDATED"
	stateContentVerified uploadState = "CONTENT_VERIFIED"
	stateThreatScanned   uploadState = "THREAT_SCANNED"
	stateNamed           uploadState = "NAMED"
	stateProcessed       uploadState = "PROCESSED"
	statePersisted       uploadState = "PERSISTED"
	stateComplete        uploadState = "COMPLETE"
	stateFailed          uploadState = "FAILED"
)

// Pipeline orchestrates validation, sniffing, scanning, naming, processing
// and persistence for untrusted uploads. Safe for concurrent use: every call
// works on its own data and the naming scheme keeps destinations disjoint.
type Pipeline struct {
	root string
	log  *zap.Logger
}

// New creates a Pipeline committing files under root.
func New(root string, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{root: root, log: log}
}

// ProcessUpload runs one request through the full pipeline and returns the
// record of the committed file. On any failure the destination is left
// untouched: bytes already written are removed before the error returns.
func (p *Pipeline) ProcessUpload(req *UploadRequest, cfg *UploadConfig) (rec *UploadedFileRecord, err error) {
	callID := uuid.NewString()
	state := stateReceived
	log := p.log.With(zap.String("upload_id", callID), zap.String("file", req.OriginalName))

	var committedRel string
	root := cfg.StorageRoot
	if root == "" {
		root = p.root
	}
	// Cleanup runs on every exit path. A failed upload must never leave
	// partial bytes behind for the retention sweeper to trip over.
	defer func() {
		if err == nil {
			return
		}
		reached := state
		state = stateFailed
		if committedRel != "" {
			if _, rmErr := removeStored(root, committedRel); rmErr != nil {
				log.Error("cleanup of failed upload left bytes behind",
					zap.String("path", committedRel), zap.Error(rmErr))
			}
		}
		log.Warn("upload rejected",
			zap.String("state", string(state)),
			zap.String("reached", string(reached)),
			zap.Error(err))
	}()

	if err = validateConstraints(req, cfg); err != nil {
		return nil, err
	}
	state = stateValidated

	if f := sniffContent(req.Data, req.MimeType); f.kind != findingValid {
		if f.detectedMime != "" {
			return nil, newError(CodeInvalidContent, "%s (detected %s)", f.reason, f.detectedMime)
		}
		return nil, newError(CodeInvalidContent, "%s", f.reason)
	}
	state = stateContentVerified

	if cfg.EnableThreatScan {
		if f := scanThreats(req.Data, req.OriginalName, log); f.kind != findingValid {
			return nil, newError(CodeSecurityThreat, "%s", f.reason)
		}
		state = stateThreatScanned
	}

	fileName, err := generateFileName(req.OriginalName)
	if err != nil {
		return nil, err
	}
	relPath := relativeStoragePath(storageCategory(req.FieldName), fileName, time.Now())
	state = stateNamed

	data, width, height := processContent(req.Data, req.MimeType, cfg, log)
	state = stateProcessed

	hash, err := persistBytes(root, relPath, data)
	if err != nil {
		return nil, err
	}
	committedRel = relPath
	state = statePersisted

	rec = &UploadedFileRecord{
		OriginalName: req.OriginalName,
		FileName:     fileName,
		MimeType:     req.MimeType,
		Size:         int64(len(data)),
		RelativePath: relPath,
		URL:          cfg.PublicURLPrefix + "/" + relPath,
		Hash:         hash,
		Width:        width,
		Height:       height,
	}
	state = stateComplete
	log.Info("upload committed",
		zap.String("path", relPath),
		zap.String("hash", hash),
		zap.Int64("size", rec.Size))
	return rec, nil
}

// ProcessBatch runs requests sequentially, accumulating one record per
// success. Failures never abort sibling files; they are logged and, when
// every item fails, reported together as BATCH_UPLOAD_FAILED.
func (p *Pipeline) ProcessBatch(reqs []*UploadRequest, cfg *UploadConfig) ([]*UploadedFileRecord, error) {
	records := make([]*UploadedFileRecord, 0, len(reqs))
	var failures []string

	for _, req := range reqs {
		rec, err := p.ProcessUpload(req, cfg)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", req.OriginalName, err))
			continue
		}
		records = append(records, rec)
	}

	if len(reqs) > 0 && len(records) == 0 {
		return nil, &PipelineError{
			Code:    CodeBatchUploadFailed,
			Message: fmt.Sprintf("all %d files failed", len(failures)),
			Detail:  failures,
		}
	}
	for _, f := range failures {
		p.log.Warn("batch item failed", zap.String("detail", f))
	}
	return records, nil
}

// DeleteStored removes a previously committed file after re-validating the
// path against the storage root. Returns false without error when the file
// is already gone.
func (p *Pipeline) DeleteStored(relPath string) (bool, error) {
	return removeStored(p.root, relPath)
}

// StatStored returns size and timestamps for a committed file, or nil when
// it does not exist.
func (p *Pipeline) StatStored(relPath string) (*FileStat, error) {
	return statStored(p.root, relPath)
}
