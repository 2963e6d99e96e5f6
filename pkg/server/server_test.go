package server

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/pkg/adapter"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// stubAdapter is a minimal adapter.Adapter whose Serve blocks until the
// context is cancelled or failWith is delivered.
type stubAdapter struct {
	protocol string
	port     int
	failWith chan error
	stopped  atomic.Bool
}

func newStubAdapter(protocol string, port int) *stubAdapter {
	return &stubAdapter{
		protocol: protocol,
		port:     port,
		failWith: make(chan error, 1),
	}
}

func (a *stubAdapter) Serve(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-a.failWith:
		return err
	}
}

func (a *stubAdapter) Stop(ctx context.Context) error {
	a.stopped.Store(true)
	a.failWith <- context.Canceled
	return nil
}

func (a *stubAdapter) Protocol() string { return a.protocol }
func (a *stubAdapter) Port() int        { return a.port }

var _ adapter.Adapter = (*stubAdapter)(nil)

func TestAddAdapter(t *testing.T) {
	t.Run("registers distinct adapters", func(t *testing.T) {
		srv := New()

		require.NoError(t, srv.AddAdapter(newStubAdapter("WebDAV", 8080)))
		require.NoError(t, srv.AddAdapter(newStubAdapter("SFTP", 2222)))

		assert.Len(t, srv.Adapters(), 2)
	})

	t.Run("rejects nil adapter", func(t *testing.T) {
		srv := New()

		err := srv.AddAdapter(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil")
	})

	t.Run("rejects duplicate protocol", func(t *testing.T) {
		srv := New()
		require.NoError(t, srv.AddAdapter(newStubAdapter("WebDAV", 8080)))

		err := srv.AddAdapter(newStubAdapter("WebDAV", 9090))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("rejects port conflict", func(t *testing.T) {
		srv := New()
		require.NoError(t, srv.AddAdapter(newStubAdapter("WebDAV", 8080)))

		err := srv.AddAdapter(newStubAdapter("SFTP", 8080))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already in use")
	})

	t.Run("allows multiple adapters on port zero", func(t *testing.T) {
		srv := New()

		require.NoError(t, srv.AddAdapter(newStubAdapter("WebDAV", 0)))
		require.NoError(t, srv.AddAdapter(newStubAdapter("SFTP", 0)))
	})
}

func TestServeRequiresAdapters(t *testing.T) {
	srv := New()

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapters registered")
}

func TestServeOnlyOnce(t *testing.T) {
	srv := New()
	require.NoError(t, srv.AddAdapter(newStubAdapter("WebDAV", 8080)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already called")
}

func TestAddAdapterAfterServe(t *testing.T) {
	srv := New()
	require.NoError(t, srv.AddAdapter(newStubAdapter("WebDAV", 8080)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()
	cancel()
	<-done

	err := srv.AddAdapter(newStubAdapter("SFTP", 2222))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after Serve")
}

func TestServeStopsAllOnCancellation(t *testing.T) {
	srv := New()
	first := newStubAdapter("WebDAV", 8080)
	second := newStubAdapter("SFTP", 2222)
	require.NoError(t, srv.AddAdapter(first))
	require.NoError(t, srv.AddAdapter(second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	assert.True(t, first.stopped.Load(), "first adapter was not stopped")
	assert.True(t, second.stopped.Load(), "second adapter was not stopped")
}

func TestServeStopsAllOnAdapterFailure(t *testing.T) {
	srv := New()
	failing := newStubAdapter("WebDAV", 8080)
	healthy := newStubAdapter("SFTP", 2222)
	require.NoError(t, srv.AddAdapter(failing))
	require.NoError(t, srv.AddAdapter(healthy))

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(context.Background())
	}()

	boom := errors.New("listener exploded")
	failing.failWith <- boom

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "WebDAV")
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after adapter failure")
	}

	assert.True(t, healthy.stopped.Load(), "healthy adapter was not stopped")
}
