// Package adapter defines the lifecycle contract for protocol front-ends.
//
// An adapter maps a network file-access protocol (WebDAV today) onto the
// storage coordinator. Adapters consume only the coordinator's public
// operations and never talk to either backing store directly, so every
// protocol observes the same tree and the same consistency rules.
package adapter

import "context"

// Adapter is a protocol server managed by the server package.
//
// Adapters are constructed with their protocol configuration and the shared
// storage coordinator, then driven through two lifecycle calls:
//
//  1. Serve() starts the protocol server and blocks until the context is
//     cancelled or an unrecoverable error occurs.
//  2. Stop() initiates graceful shutdown and may be called concurrently
//     with Serve().
//
// Thread safety: implementations must be safe for concurrent use; Stop()
// may race with Serve() during shutdown.
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is
	// cancelled or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must stop accepting new
	// connections, drain in-flight operations, release resources and
	// return nil or context.Canceled. Returning a non-nil error before
	// cancellation makes the managing server stop every adapter; an early
	// nil return is logged as a stop and leaves the others running.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown. It must be idempotent, safe to
	// call concurrently with Serve, and must respect the context's
	// deadline as the shutdown budget.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name, constant for the
	// adapter's lifetime. Used for logging.
	Protocol() string

	// Port returns the TCP port the adapter listens on, or 0 before
	// Serve() when the port is allocated dynamically.
	Port() int
}
