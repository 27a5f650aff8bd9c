package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/pipeline"
	"github.com/bfsi-insights/curation-cli/internal/state"
	"github.com/bfsi-insights/curation-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(s, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting review api", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter builds the review API. All mutation endpoints go through the
// same Review operations the CLI uses, so the state machine guards apply
// identically.
func newRouter(s store.Store, origins []string) *chi.Mux {
	review := pipeline.NewReview(s)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
			counts, err := s.CountByStatus(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, counts)
		})

		r.Get("/queue", func(w http.ResponseWriter, req *http.Request) {
			filter := store.QueueFilter{Source: req.URL.Query().Get("source")}
			if raw := req.URL.Query().Get("status"); raw != "" {
				st := model.Status(raw)
				if !st.Valid() {
					writeError(w, http.StatusBadRequest, eris.Errorf("unknown status %q", raw))
					return
				}
				filter.Statuses = []model.Status{st}
			}
			filter.Limit = queryInt(req, "limit", 50)
			filter.Offset = queryInt(req, "offset", 0)

			items, err := s.ListQueue(req.Context(), filter)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
		})

		r.Get("/queue/{id}", func(w http.ResponseWriter, req *http.Request) {
			item, err := s.GetQueueItem(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				if eris.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusNotFound, err)
					return
				}
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, item)
		})

		r.Post("/queue/{id}/approve", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Reviewer string `json:"reviewer"`
				Title    string `json:"title"`
			}
			decodeBody(req, &body)
			reviewAction(w, req, review.Approve(req.Context(), chi.URLParam(req, "id"), body.Reviewer, body.Title))
		})

		r.Post("/queue/{id}/reject", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Reviewer string `json:"reviewer"`
				Reason   string `json:"reason"`
			}
			decodeBody(req, &body)
			reviewAction(w, req, review.Reject(req.Context(), chi.URLParam(req, "id"), body.Reviewer, body.Reason))
		})

		r.Post("/queue/{id}/reenrich", func(w http.ResponseWriter, req *http.Request) {
			reviewAction(w, req, review.Reenrich(req.Context(), chi.URLParam(req, "id")))
		})

		r.Post("/queue/{id}/retry", func(w http.ResponseWriter, req *http.Request) {
			reviewAction(w, req, review.Retry(req.Context(), chi.URLParam(req, "id")))
		})
	})

	return r
}

func reviewAction(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case eris.Is(err, state.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeBody(req *http.Request, v any) {
	// An empty or malformed body falls back to zero values; the review
	// operations treat a missing reviewer as anonymous.
	_ = json.NewDecoder(req.Body).Decode(v)
}

func queryInt(req *http.Request, key string, def int) int {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	zap.L().Warn("api error", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
