package presentation

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"Go2NetIDS/internal/logger"
)

// HTTPLauncher serves an API in the background. Only the first successful
// Launch starts the server; later calls are no-ops.
type HTTPLauncher struct {
	addr string
	api  *API

	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
}

// NewHTTPLauncher creates a launcher that will listen on addr.
func NewHTTPLauncher(addr string, api *API) *HTTPLauncher {
	return &HTTPLauncher{addr: addr, api: api}
}

// Launch binds the listener and starts serving. Bind errors are returned and
// the next call tries again.
func (l *HTTPLauncher) Launch(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.server != nil {
		return nil
	}
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	server := &http.Server{Handler: l.api.Router()}
	l.ln, l.server = ln, server
	go func() {
		logger.WithComponent("presentation").Infof("API server starting on %s", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithComponent("presentation").WithError(err).Error("API server stopped")
		}
	}()
	return nil
}

// Addr is the bound address, or nil before a successful Launch.
func (l *HTTPLauncher) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Shutdown stops the server if it was started.
func (l *HTTPLauncher) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	server := l.server
	l.mu.Unlock()
	if server == nil {
		return nil
	}
	logger.WithComponent("presentation").Info("API server shutting down...")
	return server.Shutdown(ctx)
}
