package main

import (
	"context"
	"log"

	"github.com/vbonduro/eatlytic/internal/analysis"
	"github.com/vbonduro/eatlytic/internal/backend"
	"github.com/vbonduro/eatlytic/internal/config"
	"github.com/vbonduro/eatlytic/internal/db"
	"github.com/vbonduro/eatlytic/internal/logging"
	"github.com/vbonduro/eatlytic/internal/service"
	"github.com/vbonduro/eatlytic/internal/store"
	"github.com/vbonduro/eatlytic/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	requester, err := backend.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to configure analysis backend", "error", err)
		return
	}
	defer func() {
		if err := backend.Close(requester); err != nil {
			logger.Error("failed to close analysis backend", "error", err)
		}
	}()

	client := analysis.NewClient(requester, logger)
	svc := service.NewAnalysisService(client, store.NewAttemptStore(database), cfg.AnalysisBackend, logger)
	server := web.NewServer(svc, cfg.MaxUploadBytes, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}
