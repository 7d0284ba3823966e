package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborline/manifest-cli/internal/batch"
	"github.com/harborline/manifest-cli/internal/model"
)

var (
	servePort    int
	serveOffline bool
	serveNoCache bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the standardization HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, serveOffline, serveNoCache)
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(e.Adapter),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the standardization endpoints. The adapter keeps
// per-call stats, so requests are serialized through a mutex.
func buildRouter(a *batch.Adapter) http.Handler {
	var mu sync.Mutex

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	standardize := func(fn func(ctx context.Context, raws []string) ([]model.StandardizedRecord, error)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			inputs, err := batch.ParseRequest(r.Body)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}

			mu.Lock()
			recs, err := fn(r.Context(), inputs)
			mu.Unlock()
			if err != nil {
				zap.L().Error("standardize request failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "standardization failed"})
				return
			}

			writeJSON(w, http.StatusOK, batch.Response{StandardizedData: recs})
		}
	}

	r.Post("/v1/standardize", standardize(a.StandardizeNames))
	r.Post("/v1/extract-city", standardize(a.ExtractCities))

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "skip the LLM oracles, suffix engine only")
	serveCmd.Flags().BoolVar(&serveNoCache, "no-cache", false, "skip the mapping cache")
	rootCmd.AddCommand(serveCmd)
}
