package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocjay1/koala-laundry/internal/handler"
	"github.com/rocjay1/koala-laundry/internal/services"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload and summary API (Azure Functions custom handler)",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().String("port", "", "listen port (env FUNCTIONS_CUSTOMHANDLER_PORT)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps, err := newDependencies(ctx, a.cfg.UserEmail)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              ":" + stringFlag(cmd, "port", a.cfg.Port),
			Handler:           loggingMiddleware(newRouter(deps)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("starting server", "addr", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}

	return cmd
}

func newDependencies(ctx context.Context, userEmail string) (*handler.Dependencies, error) {
	db, err := services.NewDatabaseServiceFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	blob, err := services.NewBlobServiceFromEnv()
	if err != nil {
		return nil, err
	}
	queue, err := services.NewQueueServiceFromEnv()
	if err != nil {
		return nil, err
	}

	deps := &handler.Dependencies{
		Database:  db,
		Blob:      blob,
		Queue:     queue,
		UserEmail: userEmail,
	}

	email, err := services.NewEmailService(nil)
	if err != nil {
		slog.Warn("email notifications disabled", "error", err)
	} else {
		deps.Email = email
	}
	return deps, nil
}

func newRouter(deps *handler.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/upload", deps.HandleUpload)
	mux.HandleFunc("GET /api/summary", deps.HandleSummaries)
	mux.HandleFunc("GET /api/summary/latest.csv", deps.HandleLatestSummaryCSV)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Functions host triggers.
	mux.HandleFunc("/HttpTrigger", deps.HandleHttpTrigger(mux))
	mux.HandleFunc("/ProcessQueue", deps.ProcessQueue)
	mux.HandleFunc("/DigestTrigger", deps.HandleDigestTrigger)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		slog.Warn("unmatched request", "method", r.Method, "path", r.URL.Path)
		http.NotFound(w, r)
	})

	return mux
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}
