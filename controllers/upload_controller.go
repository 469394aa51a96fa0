package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/mediagate/config"
	"github.com/cppla/mediagate/models"
	"github.com/cppla/mediagate/pipeline"
	"github.com/cppla/mediagate/utils"
)

const uploadListCachePrefix = "cache:uploads:user:"

// UploadController exposes the ingestion pipeline over HTTP and keeps the
// relational record of committed files in sync with the storage tree.
type UploadController struct {
	db *gorm.DB
	p  *pipeline.Pipeline
}

// NewUploadController creates an UploadController backed by db and p.
func NewUploadController(db *gorm.DB, p *pipeline.Pipeline) *UploadController {
	return &UploadController{db: db, p: p}
}

// Upload ingests a single file. The multipart field name selects the policy:
// avatar, cover, icon and screenshot fields get their own limits, anything
// else falls back to the attachment policy.
func (u *UploadController) Upload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	fieldHint := ctx.PostForm("field")
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "no file uploaded")
		return
	}
	defer file.Close()
	if fieldHint == "" {
		fieldHint = "attachment"
	}

	cfg := config.ResolveUploadConfig(fieldHint)

	req, err := readUploadRequest(file, header, fieldHint, cfg.MaxSize)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "failed to read uploaded file")
		return
	}

	rec, err := u.p.ProcessUpload(req, &cfg)
	if err != nil {
		status, code := uploadErrorStatus(err)
		utils.Error(ctx, status, code, err.Error())
		return
	}

	row := u.recordUpload(userID, fieldHint, rec)
	utils.InvalidateByPrefix(uploadListCachePrefix + strconv.Itoa(int(userID)))

	utils.Success(ctx, gin.H{"id": row.ID, "file": rec})
}

// UploadBatch ingests every file in the "files" multipart field. Individual
// failures do not abort the batch; the response reports both outcomes.
func (u *UploadController) UploadBatch(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40121, "unauthorized")
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40023, "no files uploaded")
		return
	}

	fieldHint := ctx.PostForm("field")
	if fieldHint == "" {
		fieldHint = "attachment"
	}
	cfg := config.ResolveUploadConfig(fieldHint)

	reqs := make([]*pipeline.UploadRequest, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			continue
		}
		req, rerr := readUploadRequest(f, h, fieldHint, cfg.MaxSize)
		f.Close()
		if rerr != nil {
			continue
		}
		reqs = append(reqs, req)
	}

	records, err := u.p.ProcessBatch(reqs, &cfg)
	if err != nil {
		var pe *pipeline.PipelineError
		if errors.As(err, &pe) && pe.Code == pipeline.CodeBatchUploadFailed {
			utils.Respond(ctx, http.StatusBadRequest, 40024, pe.Message, gin.H{"failures": pe.Detail})
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "batch upload failed")
		return
	}

	results := make([]gin.H, 0, len(records))
	for _, rec := range records {
		row := u.recordUpload(userID, fieldHint, rec)
		results = append(results, gin.H{"id": row.ID, "file": rec})
	}
	utils.InvalidateByPrefix(uploadListCachePrefix + strconv.Itoa(int(userID)))

	utils.Success(ctx, gin.H{
		"uploaded": results,
		"failed":   len(reqs) - len(records),
	})
}

// ListUploads returns the authenticated user's uploads, newest first, cached
// per user and page in Redis.
func (u *UploadController) ListUploads(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40122, "unauthorized")
		return
	}

	page, pageSize := 1, 20
	if v, err := strconv.Atoi(ctx.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(ctx.Query("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = v
	}

	cacheKey := fmt.Sprintf("%s%d:p%d:s%d", uploadListCachePrefix, userID, page, pageSize)
	if b, hit := utils.CacheGetBytes(cacheKey); hit {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var files []models.UploadedFile
	var total int64
	if err := u.db.Model(&models.UploadedFile{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count uploads")
		return
	}
	if err := u.db.Where("user_id = ?", userID).Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&files).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list uploads")
		return
	}

	payload := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{
		"total": total,
		"items": files,
	}}
	utils.CacheSetJSON(cacheKey, payload, 0)
	ctx.JSON(http.StatusOK, payload)
}

// StatUpload reports on-disk size and mtime for one of the user's uploads.
func (u *UploadController) StatUpload(ctx *gin.Context) {
	row, ok := u.ownedUpload(ctx)
	if !ok {
		return
	}

	stat, err := u.p.StatStored(row.RelativePath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to stat file")
		return
	}
	if stat == nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "file missing from storage")
		return
	}

	utils.Success(ctx, gin.H{
		"size":     stat.Size,
		"mod_time": stat.ModTime,
		"path":     row.RelativePath,
	})
}

// DeleteUpload removes one of the user's uploads from storage and the database.
func (u *UploadController) DeleteUpload(ctx *gin.Context) {
	row, ok := u.ownedUpload(ctx)
	if !ok {
		return
	}

	removed, err := u.p.DeleteStored(row.RelativePath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to delete file")
		return
	}
	if err := u.db.Delete(&models.UploadedFile{}, row.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to delete record")
		return
	}
	utils.InvalidateByPrefix(uploadListCachePrefix + strconv.Itoa(int(row.UserID)))

	utils.Success(ctx, gin.H{"deleted": true, "bytes_removed": removed})
}

// ownedUpload loads the upload in :id and enforces ownership.
func (u *UploadController) ownedUpload(ctx *gin.Context) (*models.UploadedFile, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40123, "unauthorized")
		return nil, false
	}

	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid upload id")
		return nil, false
	}

	var row models.UploadedFile
	if err := u.db.First(&row, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "upload not found")
		return nil, false
	}
	if row.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, 40301, "not your upload")
		return nil, false
	}
	return &row, true
}

// recordUpload persists the pipeline result. Record failure does not undo
// the committed file; the row is best-effort bookkeeping for listing and
// retention.
func (u *UploadController) recordUpload(userID uint, fieldHint string, rec *pipeline.UploadedFileRecord) *models.UploadedFile {
	row := &models.UploadedFile{
		UserID:       userID,
		OriginalName: utils.SanitizeName(rec.OriginalName),
		FileName:     rec.FileName,
		MimeType:     rec.MimeType,
		Size:         rec.Size,
		Category:     categoryOf(rec.RelativePath),
		RelativePath: rec.RelativePath,
		URL:          rec.URL,
		Hash:         rec.Hash,
		Width:        rec.Width,
		Height:       rec.Height,
	}
	c := config.Get()
	if c.RetentionEnabled && c.RetentionMinutes > 0 {
		exp := time.Now().Add(time.Duration(c.RetentionMinutes) * time.Minute)
		row.ExpireAt = &exp
	}
	if err := u.db.Create(row).Error; err != nil {
		utils.Sugar.Warnf("failed to record upload %s: %v", rec.RelativePath, err)
	}
	return row
}

// readUploadRequest drains one multipart file into an UploadRequest. The
// limited reader bounds memory at one byte over the policy cap so oversized
// payloads still reach the validator and get the proper taxonomy code.
func readUploadRequest(file multipart.File, header *multipart.FileHeader, fieldHint string, maxSize int64) (*pipeline.UploadRequest, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, err
	}
	mimeType := header.Header.Get("Content-Type")
	return &pipeline.UploadRequest{
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Size:         int64(len(data)),
		FieldName:    fieldHint,
		Data:         data,
	}, nil
}

// uploadErrorStatus maps the pipeline taxonomy onto transport responses.
func uploadErrorStatus(err error) (int, int) {
	switch pipeline.CodeOf(err) {
	case pipeline.CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge, 41301
	case pipeline.CodeInvalidMimeType, pipeline.CodeInvalidExtension, pipeline.CodeUnsafeFilename:
		return http.StatusBadRequest, 40026
	case pipeline.CodeInvalidContent:
		return http.StatusUnprocessableEntity, 42201
	case pipeline.CodeSecurityThreat:
		return http.StatusUnprocessableEntity, 42202
	case pipeline.CodeInvalidPath:
		return http.StatusInternalServerError, 50026
	case pipeline.CodeStorageFailed, pipeline.CodeProcessingFailed:
		return http.StatusInternalServerError, 50027
	default:
		return http.StatusInternalServerError, 50028
	}
}

// categoryOf extracts the leading partition segment of a relative path.
func categoryOf(relPath string) string {
	for i := 0; i < len(relPath); i++ {
		if relPath[i] == '/' {
			return relPath[:i]
		}
	}
	return relPath
}
