// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"prepwise_auth/internal/app"
	"prepwise_auth/internal/config"
	"prepwise_auth/internal/firebase"
	"prepwise_auth/internal/jobs"
	"prepwise_auth/internal/middleware"
	"prepwise_auth/internal/platform/logger"
	"prepwise_auth/internal/session"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		provideDatabase,

		// Firebase Admin
		firebase.NewFirebaseService,
		wire.Bind(new(session.TokenVerifier), new(*firebase.FirebaseService)),
		wire.Bind(new(middleware.SessionCookieVerifier), new(*firebase.FirebaseService)),

		// Session endpoint
		session.NewGORMRepository,
		session.NewService,
		session.NewHandler,
		provideSessionPruner,
		jobs.NewSessionPruneJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
