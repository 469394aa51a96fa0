package main

import (
	"time"

	"github.com/cppla/mediagate/config"
	"github.com/cppla/mediagate/models"
	"github.com/cppla/mediagate/pipeline"
	"github.com/cppla/mediagate/routes"
	"github.com/cppla/mediagate/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.UploadedFile{})

	p := pipeline.New(cfg.StorageRoot, utils.Logger)

	r := routes.SetupRouter(db, p)

	// Background retention sweep for expired uploads (best-effort)
	utils.StartRetentionSweeper(p, 5*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
