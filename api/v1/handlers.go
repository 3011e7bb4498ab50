package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tinoosan/contentd/internal/content"
	"github.com/tinoosan/contentd/internal/data"
	"github.com/tinoosan/contentd/internal/repo"
)

// SourceHandler serves the provider registry over HTTP.
type SourceHandler struct {
	l      *slog.Logger
	facade *content.Facade
	runs   repo.RunReader
}

// registerBody is the POST /v1/sources payload, mirroring the registration
// object the agent modules use.
type registerBody struct {
	Name       string            `json:"name"`
	Interval   int               `json:"interval"`
	Ondemand   bool              `json:"ondemand"`
	ConfigData data.SourceConfig `json:"configData"`
}

type patchBody struct {
	Interval int `json:"interval"`
}

type rwLogger struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (w *rwLogger) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *rwLogger) SetErr(err error) {
	w.err = err
}

func (w *rwLogger) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

type errorSetter interface {
	SetErr(error)
}

func markErr(w http.ResponseWriter, err error) {
	if es, ok := w.(errorSetter); ok {
		es.SetErr(err)
	}
}

// context keys
type ctxKeyRegister struct{}
type ctxKeyPatch struct{}

func NewSourceHandler(l *slog.Logger, facade *content.Facade, runs repo.RunReader) *SourceHandler {
	return &SourceHandler{l: l, facade: facade, runs: runs}
}

// GetSources lists registered providers with their scheduler state.
func (h *SourceHandler) GetSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.facade.Providers())
}

// AddSource registers a provider from the validated body. When the body
// asks for it, scheduling or a one-shot run starts immediately.
func (h *SourceHandler) AddSource(w http.ResponseWriter, r *http.Request) {
	v := r.Context().Value(ctxKeyRegister{})
	body, ok := v.(*registerBody)
	if !ok || body == nil {
		markErr(w, ErrSourceCtx)
		http.Error(w, ErrSourceCtx.Error(), http.StatusInternalServerError)
		return
	}

	cfg := body.ConfigData
	if body.Interval > 0 {
		cfg["interval"] = body.Interval
	}

	if err := h.facade.AddProvider(body.Name, cfg); err != nil {
		markErr(w, err)
		switch {
		case errors.Is(err, data.ErrProviderExists):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, data.ErrInvalidConfig):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if body.Interval > 0 {
		if err := h.facade.StartScheduling(body.Name, time.Duration(body.Interval)*time.Second); err != nil {
			markErr(w, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if body.Ondemand {
		if err := h.facade.StartOndemand(body.Name); err != nil {
			markErr(w, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"name": body.Name})
}

// TriggerOndemand starts one immediate run for a provider.
func (h *SourceHandler) TriggerOndemand(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.facade.StartOndemand(name); err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrProviderNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// UpdateSource changes a provider's scheduler interval from the next tick.
func (h *SourceHandler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	v := r.Context().Value(ctxKeyPatch{})
	body, ok := v.(patchBody)
	if !ok || body.Interval <= 0 {
		markErr(w, ErrPatchCtx)
		http.Error(w, ErrPatchCtx.Error(), http.StatusInternalServerError)
		return
	}

	err := h.facade.ChangeSchedulerInterval(name, time.Duration(body.Interval)*time.Second)
	if err != nil {
		markErr(w, err)
		switch {
		case errors.Is(err, data.ErrProviderNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, data.ErrInvalidConfig):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "interval": body.Interval})
}

// GetRuns serves the recorded run history for a source, newest first.
func (h *SourceHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			markErr(w, err)
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.runs.ListBySource(r.Context(), name, limit)
	if err != nil {
		markErr(w, err)
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := runs.ToJSON(w); err != nil {
		markErr(w, err)
	}
}
