// Package api contains the REST API for the retina node admin console.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/owl-os/retina-console/pkg/api/v1"
	"github.com/owl-os/retina-console/pkg/logger"
	"github.com/owl-os/retina-console/pkg/mender"
	"github.com/owl-os/retina-console/pkg/settings"
	"github.com/owl-os/retina-console/pkg/sshkeys"
	"github.com/owl-os/retina-console/pkg/systemd"
)

const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Deps carries the collaborators the API routes work against.
type Deps struct {
	Settings *settings.Service
	SSHKeys  *sshkeys.Manager
	Cloud    systemd.Toggle
	OTA      *mender.Client
}

func headersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// Router assembles the console API router.
//
// The request timeout covers the quick routes only. Settings apply and OTA
// install block on the apply pipeline and mender-update, which own their
// configured bounds (minutes); a blanket request timeout would cancel the
// context those bounds derive from and cut the work short.
func Router(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		headersMiddleware,
	)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(middlewareTimeout))
		r.Mount("/health", v1.HealthcheckRouter())
		r.Mount("/api/v1/ssh-keys", v1.SSHKeysRouter(deps.SSHKeys))
		r.Mount("/api/v1/cloud", v1.CloudRouter(deps.Cloud))
	})

	r.Mount("/api/v1/settings", v1.SettingsRouter(deps.Settings))
	r.Mount("/api/v1/ota", v1.OTARouter(deps.OTA))
	return r
}

// Serve starts the console API server on the given address and blocks
// until ctx is cancelled. It is assumed that the caller sets up
// appropriate signal handling.
func Serve(ctx context.Context, address string, deps Deps) error {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              address,
		Handler:           Router(deps),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	logger.Infof("starting console server on %s", address)

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Panicf("server stopped with error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("console server stopped")
	return nil
}
