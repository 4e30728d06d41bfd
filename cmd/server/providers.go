// File: cmd/server/providers.go
package main

import (
	"prepwise_auth/internal/config"
	"prepwise_auth/internal/jobs"
	"prepwise_auth/internal/platform/database"
	"prepwise_auth/internal/session"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideDatabase opens and migrates the session database. The cleanup
// closes it and flushes the logger.
func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger, session.Models()...)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db, logger)
		_ = logger.Sync()
	}
	return db, cleanup, nil
}

func provideSessionPruner(svc session.Service) jobs.SessionPruner {
	return svc
}
