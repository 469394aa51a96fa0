package utils

import (
	"time"

	"github.com/cppla/mediagate/config"
	"github.com/cppla/mediagate/models"
	"github.com/cppla/mediagate/pipeline"
)

// StartRetentionSweeper launches a background goroutine that periodically
// deletes expired uploads recorded in the database. Deletion goes through the
// pipeline so the relative path is re-validated against the storage root
// before anything is removed. Best-effort: failures are logged, rows for
// already-missing files are still cleared.
func StartRetentionSweeper(p *pipeline.Pipeline, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			if !config.Get().RetentionEnabled {
				continue
			}
			db := config.DB()
			if db == nil {
				continue
			}
			var items []models.UploadedFile
			if err := db.Where("expire_at IS NOT NULL AND expire_at <= ?", time.Now()).
				Limit(100).Find(&items).Error; err != nil {
				Sugar.Warnf("retention sweeper query failed: %v", err)
				continue
			}
			for _, it := range items {
				removed, err := p.DeleteStored(it.RelativePath)
				if err != nil {
					Sugar.Warnf("retention sweeper could not remove %s: %v", it.RelativePath, err)
					continue
				}
				if err := db.Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
					Sugar.Warnf("retention sweeper delete row failed: %v", err)
					continue
				}
				Sugar.Infof("retention sweeper removed %s (bytes deleted: %v)", it.RelativePath, removed)
			}
		}
	}()
}
