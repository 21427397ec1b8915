package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/spindle/internal/server"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve starts the watch engine (the scheduler runs continuously once
// constructed in main), the task status SSE endpoint, and blocks until
// interrupted, the long-running entrypoint for the background service
// half of the application.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireScheduler(); err != nil {
		return err
	}
	if r.watchEngine == nil {
		return fmt.Errorf("%w: watch engine not initialized", shared.ErrServiceUnavailable)
	}
	if r.taskLog == nil {
		return fmt.Errorf("%w: task log not initialized", shared.ErrServiceUnavailable)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := server.NewBasicRouter()
	router.Handler(server.NewSSEHandler(r.taskLog))

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	serverErrs := make(chan error, 1)
	go func() {
		r.logger.Info("serve: task stream listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- err
			return
		}
		serverErrs <- nil
	}()

	r.watchEngine.Start(runCtx)
	r.logger.Info("serve: scheduler and watch engine running, press ctrl+c to stop")

	select {
	case <-runCtx.Done():
	case err := <-serverErrs:
		if err != nil {
			r.logger.Error("serve: task stream failed", "error", err)
		}
		stop()
	}

	r.logger.Info("serve: shutting down")
	r.watchEngine.Stop()
	r.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("serve: task stream shutdown error", "error", err)
	}

	return nil
}
