package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pintuan-hub/publisher/internal/draft"
	"github.com/pintuan-hub/publisher/internal/images"
	"github.com/pintuan-hub/publisher/internal/storage"
)

type Handler struct {
	ctx          context.Context
	pipeline     *draft.Pipeline
	sessionStore *storage.SessionStore
	fetcher      *images.Fetcher
	uploadsDir   string
}

// New returns a Handler whose recognition work lives as long as ctx rather
// than the request that started it.
func New(ctx context.Context, pipeline *draft.Pipeline, uploadsDir string) *Handler {
	return &Handler{
		ctx:          ctx,
		pipeline:     pipeline,
		sessionStore: storage.New(),
		fetcher:      images.NewFetcher(),
		uploadsDir:   uploadsDir,
	}
}

// StartJanitor drops drafts idle for longer than ttl until the handler's
// context ends.
func (h *Handler) StartJanitor(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(ttl / 4)
		defer ticker.Stop()
		for {
			select {
			case <-h.ctx.Done():
				return
			case now := <-ticker.C:
				if n := h.sessionStore.Expire(now.Add(-ttl)); n > 0 {
					slog.Info("Expired idle drafts", "count", n, "ttl", ttl)
				}
			}
		}
	}()
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	r.Route("/api/drafts", func(r chi.Router) {
		r.Get("/", h.HandleListDrafts)
		r.Post("/", h.HandleCreateDraft)
		r.Route("/{draftID}", func(r chi.Router) {
			r.Get("/", h.HandleGetDraft)
			r.Put("/image", h.HandleSelectImage)
			r.Post("/submit", h.HandleSubmit)
			r.Post("/duplicate/dismiss", h.HandleDismissDuplicate)
			r.Post("/duplicate/rearm", h.HandleRearmDuplicate)
		})
	})

	if h.uploadsDir != "" {
		r.Get("/static/uploads/*", h.HandleUploads)
	}

	return r
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Warn(message)
	}
	h.writeJSONStatus(w, code, map[string]string{"error": message})
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*storage.Entry, bool) {
	entry, exists := h.sessionStore.Get(chi.URLParam(r, "draftID"))
	if !exists {
		h.writeError(w, "Draft not found", http.StatusNotFound)
		return nil, false
	}
	return entry, true
}
