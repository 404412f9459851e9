// Package opshttp is the admin listener: metrics, health probes and pprof.
// It refuses requests from public addresses.
package opshttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync"

	"github.com/keithlinneman/ipview/internal/health"
	"github.com/keithlinneman/ipview/internal/httpmw"
	"github.com/keithlinneman/ipview/internal/httpserver"
	"github.com/keithlinneman/ipview/internal/log"
	"github.com/keithlinneman/ipview/internal/xerrors"
)

// NewHandler builds the admin mux.
func NewHandler(opts *Options) http.Handler {
	opts.setDefaults()

	mux := http.NewServeMux()
	mux.Handle("/-/healthy", health.HealthzHandler(opts.Health))
	mux.Handle("/-/ready", health.ReadyzHandler(opts.Readiness))

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	// shadow pprof with 404s when disabled
	if opts.EnablePprof {
		RegisterPprof(mux)
	} else {
		mux.HandleFunc("/debug/pprof/", http.NotFound)
	}

	var h http.Handler = requireNonPublicNetwork(opts.Logger, mux)
	if opts.UseRecoverMW {
		h = httpmw.Recover(opts.Logger, opts.OnPanic)(h)
	}
	return h
}

// Start the admin HTTP server. Returns stop(ctx) for graceful shutdown.
func Start(ctx context.Context, opts Options) (func(context.Context) error, error) {
	handler := NewHandler(&opts)
	L := opts.Logger
	addr := fmt.Sprintf(":%d", opts.Port)

	srv := httpserver.NewServer(addr, handler)
	// profile and trace stream for up to their seconds parameter
	if opts.EnablePprof {
		srv.WriteTimeout = 0
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "could not listen for admin port on addr=%v", addr)
	}

	go func() {
		L.Info(ctx, "ops http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			L.Error(ctx, err, "ops http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			L.Info(sctx, "ops http server shutting down")
			c, cancel := context.WithTimeout(sctx, httpserver.DefaultShutdownTimeout)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}

// requireNonPublicNetwork allows loopback, private and link-local peers only.
func requireNonPublicNetwork(L log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ap, err := netip.ParseAddrPort(r.RemoteAddr)
		if err != nil {
			L.Warn(r.Context(), "ops request with unparseable remote addr", "remote_addr", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ip := ap.Addr().Unmap()
		if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsLinkLocalUnicast() {
			L.Warn(r.Context(), "ops request from public address rejected", "remote_addr", ip.String(), "url.path", r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
