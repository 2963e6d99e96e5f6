// Package webdav implements the WebDAV protocol adapter.
//
// The adapter maps golang.org/x/net/webdav's FileSystem contract onto the
// storage coordinator: paths are resolved by walking child listings from the
// root, file handles buffer content in memory, and every mutation goes
// through a coordinator operation. The adapter never talks to the blob or
// metadata store directly.
package webdav

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/webdav"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/storage"
)

// WebDAVConfig holds configuration parameters for the WebDAV server.
//
// Default values (applied by New if zero):
//   - Port: 8080
//   - ReadTimeout: 5m (large uploads stream through a single request)
//   - WriteTimeout: 5m
//   - IdleTimeout: 5m
//   - ShutdownTimeout: 30s
type WebDAVConfig struct {
	// Enabled controls whether the WebDAV adapter is active.
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port to listen on. If 0, defaults to 8080.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// Prefix is the URL path prefix stripped before resolving resources,
	// e.g. "/dav". Empty serves from the URL root.
	Prefix string `mapstructure:"prefix"`

	// ReadTimeout bounds reading a complete request, including the body.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing a complete response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// IdleTimeout closes keep-alive connections that stay quiet.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

func (c *WebDAVConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// WebDAVAdapter implements the adapter.Adapter interface for WebDAV.
//
// Thread safety: all methods are safe for concurrent use; Stop() may race
// with Serve() during shutdown.
type WebDAVAdapter struct {
	config  WebDAVConfig
	storage *storage.Service

	mu     sync.Mutex
	server *http.Server
}

// New creates a WebDAV adapter serving the given coordinator's tree.
func New(config WebDAVConfig, svc *storage.Service) (*WebDAVAdapter, error) {
	if svc == nil {
		return nil, fmt.Errorf("storage service is required")
	}
	config.applyDefaults()

	return &WebDAVAdapter{
		config:  config,
		storage: svc,
	}, nil
}

// Serve starts the WebDAV HTTP server and blocks until the context is
// cancelled or the listener fails.
func (a *WebDAVAdapter) Serve(ctx context.Context) error {
	handler := &webdav.Handler{
		Prefix:     a.config.Prefix,
		FileSystem: newFileSystem(a.storage),
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logger.Debug("WebDAV %s %s: %v", r.Method, r.URL.Path, err)
			}
		},
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Port),
		Handler:      handler,
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
		IdleTimeout:  a.config.IdleTimeout,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	a.mu.Lock()
	a.server = srv
	a.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("WebDAV shutdown failed: %w", err)
		}
		<-errChan
		return ctx.Err()

	case err := <-errChan:
		if err == http.ErrServerClosed {
			// Stop() already drained the server.
			return nil
		}
		return err
	}
}

// Stop initiates graceful shutdown. Idempotent; safe to call concurrently
// with Serve.
func (a *WebDAVAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	a.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Protocol implements adapter.Adapter.
func (a *WebDAVAdapter) Protocol() string {
	return "WebDAV"
}

// Port implements adapter.Adapter.
func (a *WebDAVAdapter) Port() int {
	return a.config.Port
}
