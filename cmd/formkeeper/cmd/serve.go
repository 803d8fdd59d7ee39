package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/formkeeper/internal/core/api"
	"github.com/solatis/formkeeper/internal/core/server"
	"github.com/solatis/formkeeper/internal/core/store"
	"github.com/solatis/formkeeper/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC form service and the HTTP preview server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("grpc-port", 50061, "gRPC server port")
	serveCmd.Flags().Int("http-port", 8080, "HTTP server port")
	serveCmd.Flags().String("data-dir", "./data", "data directory (sqlite database, revision journal)")
	serveCmd.Flags().Bool("memory", false, "keep forms in memory instead of the database")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Default()

	var repo store.Repository
	if memory, _ := cmd.Flags().GetBool("memory"); memory {
		logger.Warn("using in-memory form store; forms are lost on exit")
		repo = store.NewMemory()
	} else {
		sqlRepo, closeDB, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()
		repo = sqlRepo
	}

	service, err := api.NewFormService(repo, cfg)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	grpcServer, err := server.NewGRPCServer(cfg, service)
	if err != nil {
		return fmt.Errorf("failed to create gRPC server: %w", err)
	}
	httpServer, err := server.NewHTTPServer(cfg, service)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	logger.Info("starting formkeeper",
		"version", Version, "grpc", cfg.GRPCAddr(), "http", cfg.HTTPAddr(), "data_dir", cfg.DataDir)

	errChan := make(chan error, 2)
	go func() { errChan <- grpcServer.Start(ctx) }()
	go func() { errChan <- httpServer.Start(ctx) }()

	var runErr error
	select {
	case runErr = <-errChan:
		logger.Error("server stopped", "error", runErr)
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC shutdown failed", "error", err)
	}
	return runErr
}
