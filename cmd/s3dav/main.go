// Command s3dav serves a WebDAV view of a filesystem tree coordinated
// across an object store (file content) and a key-value metadata table
// (hierarchy records).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/s3dav/internal/logger"
	webdavAdapter "github.com/marmos91/s3dav/pkg/adapter/webdav"
	"github.com/marmos91/s3dav/pkg/config"
	"github.com/marmos91/s3dav/pkg/server"
	"github.com/marmos91/s3dav/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	if err := run(*configPath, *logLevel); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "s3dav: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger.SetLevel(cfg.Logging.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	blobs, err := config.CreateBlobStore(ctx, &cfg.Blob)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	records, err := config.CreateTableStore(ctx, &cfg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to create metadata store: %w", err)
	}
	if closer, ok := records.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close metadata store: %v", err)
			}
		}()
	}

	if cfg.Metadata.Provision {
		exists, err := records.TableExists(ctx, cfg.Metadata.Table)
		if err != nil {
			return fmt.Errorf("failed to check table %q: %w", cfg.Metadata.Table, err)
		}
		if !exists {
			logger.Info("Provisioning metadata table %s", cfg.Metadata.Table)
			if err := records.CreateTable(ctx, cfg.Metadata.Table); err != nil {
				return fmt.Errorf("failed to provision table %q: %w", cfg.Metadata.Table, err)
			}
		}
	}

	svc, err := storage.NewService(storage.ServiceConfig{
		Blobs:     blobs,
		Records:   records,
		TableName: cfg.Metadata.Table,
	})
	if err != nil {
		return err
	}

	// Materialize the root up front so a misconfigured store fails the
	// start instead of the first request.
	root, err := svc.FindRoot(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve root folder: %w", err)
	}
	logger.Info("Serving tree rooted at %s", root.ID())

	srv := server.New()
	if cfg.Adapters.WebDAV.Enabled {
		dav, err := webdavAdapter.New(cfg.Adapters.WebDAV, svc)
		if err != nil {
			return fmt.Errorf("failed to create WebDAV adapter: %w", err)
		}
		if err := srv.AddAdapter(dav); err != nil {
			return err
		}
	}

	return srv.Serve(ctx)
}
