// Package server manages the lifecycle of the protocol adapters that sit on
// top of one shared storage coordinator.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/adapter"
)

// stopTimeout bounds the graceful-shutdown budget granted to each adapter.
const stopTimeout = 30 * time.Second

// Server runs one or more protocol adapters concurrently and coordinates
// their shutdown.
//
// All adapters are constructed against the same storage coordinator, so the
// tree they expose is identical regardless of protocol. The server itself
// never touches the stores; it only drives adapter lifecycles.
//
// Lifecycle:
//  1. New() creates an empty server.
//  2. AddAdapter() registers each protocol front-end.
//  3. Serve() starts every adapter and blocks until the context is
//     cancelled or an adapter fails, then stops all adapters in reverse
//     registration order and waits for them to finish.
//
// Thread safety: AddAdapter may be called concurrently before Serve; Serve
// must be called at most once.
type Server struct {
	mu       sync.RWMutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a server with no adapters registered.
func New() *Server {
	return &Server{}
}

// AddAdapter registers a protocol adapter. Duplicate protocols and port
// conflicts are rejected. Must not be called after Serve.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		return fmt.Errorf("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return fmt.Errorf("cannot add adapters after Serve()")
	}

	for _, existing := range s.adapters {
		if existing.Protocol() == a.Protocol() {
			return fmt.Errorf("adapter for protocol %s already registered", a.Protocol())
		}
		if existing.Port() == a.Port() && a.Port() != 0 {
			return fmt.Errorf("port %d already in use by %s adapter", a.Port(), existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", a.Protocol(), a.Port())
	return nil
}

// Serve starts all registered adapters concurrently and blocks until the
// context is cancelled or an adapter fails. Either way, every adapter is
// stopped (reverse registration order, bounded by stopTimeout) and Serve
// waits for all of them to finish before returning.
//
// Returns context.Canceled on signal-driven shutdown, or the failing
// adapter's error.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return fmt.Errorf("Serve() already called")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting server with %d adapter(s)", len(adapters))

	// Buffered so late failures never block an exiting goroutine.
	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			logger.Info("Starting %s adapter on port %d", a.Protocol(), a.Port())

			err := a.Serve(ctx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", a.Protocol())
			case err == context.Canceled || ctx.Err() != nil:
				logger.Debug("%s adapter stopped gracefully", a.Protocol())
			default:
				logger.Error("%s adapter failed: %v", a.Protocol(), err)
				errChan <- adapterError{protocol: a.Protocol(), err: err}
			}
		}(adp)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAll(adapters)
		serveErr = ctx.Err()

	case failure := <-errChan:
		logger.Error("%s adapter failed, stopping all adapters", failure.protocol)
		s.stopAll(adapters)
		serveErr = fmt.Errorf("%s adapter error: %w", failure.protocol, failure.err)
	}

	wg.Wait()
	logger.Info("Server stopped")

	return serveErr
}

// Adapters returns a snapshot of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

type adapterError struct {
	protocol string
	err      error
}

// stopAll signals every adapter to shut down, in reverse registration order,
// under one shared timeout. The adapters' Serve goroutines perform the
// actual cleanup; the caller waits on them separately.
func (s *Server) stopAll(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && err != context.Canceled {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		}
	}
}
