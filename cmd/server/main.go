// File: cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log" // Standard log for messages before zap is active
	"os"
	"os/signal"
	"syscall"

	"prepwise_auth/internal/config"
	"prepwise_auth/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 {
		switch cmd := os.Args[1]; cmd {
		case "sign-in", "sign-up", "oauth":
			os.Exit(runClient(cmd, os.Args[2:]))
		case "server":
		default:
			fmt.Fprintf(os.Stderr, "usage: %s [server|sign-in|sign-up|oauth] [flags]\n", os.Args[0])
			os.Exit(2)
		}
	}

	startServer()
}

func runClient(cmd string, args []string) int {
	parsed, err := parseClientCommand(cmd, args, os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err)
		return 1
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Printf("FATAL: Failed to initialize logger: %v", err)
		return 1
	}
	defer func() { _ = appLogger.Sync() }()

	controller, err := newController(cfg, appLogger, os.Stdout)
	if err != nil {
		appLogger.Error("Failed to initialize workflow", zap.Error(err))
		return 1
	}

	// Ctrl-C while waiting on the browser is treated as the user backing out.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ok, err := newTerminalClient(controller, os.Stdout).submit(ctx, parsed, cmd)
	if err != nil {
		appLogger.Error("Submission not started", zap.Error(err))
		return 1
	}
	if !ok {
		return 1
	}
	return 0
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)
	case err := <-errCh:
		if err != nil {
			log.Printf("ERROR: Server stopped unexpectedly: %v", err)
			return
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
}
