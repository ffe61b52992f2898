package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/model"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/report"
	"github.com/SamSong0149/Project-Food-Access-in-Chicago/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs and the choropleth over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.Serve.Addr
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: buildMux(st),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Serve.ShutdownTimeoutSecs)*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildMux assembles the HTTP routes over the store.
func buildMux(st store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/runs", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.RunFilter{
			Status:    model.RunStatus(q.Get("status")),
			DatasetID: q.Get("dataset"),
			Limit:     50,
		}
		runs, err := st.ListRuns(r.Context(), filter)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, runs)
	})

	mux.HandleFunc("GET /api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), r.PathValue("id"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, run)
	})

	serveChoropleth := func(w http.ResponseWriter, r *http.Request, run *model.Run) {
		ds, err := st.GetDataset(r.Context(), run.DatasetID)
		if err != nil {
			respondError(w, err)
			return
		}
		data, err := report.GeoJSON(ds, run)
		if err != nil {
			respondError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}

	mux.HandleFunc("GET /api/choropleth", func(w http.ResponseWriter, r *http.Request) {
		runs, err := st.ListRuns(r.Context(), store.RunFilter{Status: model.RunStatusComplete, Limit: 1})
		if err != nil {
			respondError(w, err)
			return
		}
		if len(runs) == 0 {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "no completed runs"})
			return
		}
		serveChoropleth(w, r, &runs[0])
	})

	mux.HandleFunc("GET /api/choropleth/{id}", func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), r.PathValue("id"))
		if err != nil {
			respondError(w, err)
			return
		}
		if run.Result == nil {
			respondJSON(w, http.StatusConflict, map[string]string{
				"error": "run has no result (status " + string(run.Status) + ")",
			})
			return
		}
		serveChoropleth(w, r, run)
	})

	return mux
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

// respondError maps store errors onto HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
