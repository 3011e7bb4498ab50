package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/tinoosan/contentd/api/v1"
	"github.com/tinoosan/contentd/internal/auth"
	"github.com/tinoosan/contentd/internal/content"
	"github.com/tinoosan/contentd/internal/notify"
	"github.com/tinoosan/contentd/internal/repo"
)

// New sets up the application routes and required middleware.
func New(logger *slog.Logger, facade *content.Facade, runs repo.RunReader, hub *notify.Hub, apiToken string) *mux.Router {

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	sourceHandler := v1.NewSourceHandler(logger, facade, runs)

	r.Use(v1.RequestID)
	r.Use(sourceHandler.Log)
	r.Use(auth.Middleware(apiToken))

	api := r.PathPrefix("/v1").Subrouter()

	// GETs
	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/sources", sourceHandler.GetSources)
	get.HandleFunc("/sources/{name}/runs", sourceHandler.GetRuns)
	get.HandleFunc("/events", hub.Subscribe)

	// POSTs
	post := api.Methods("POST").Subrouter()
	post.Handle("/sources", v1.MiddlewareSourceValidation(http.HandlerFunc(sourceHandler.AddSource)))
	post.HandleFunc("/sources/{name}/ondemand", sourceHandler.TriggerOndemand)

	// PATCHes
	patch := api.Methods("PATCH").Subrouter()
	patch.HandleFunc("/sources/{name}", sourceHandler.UpdateSource)
	patch.Use(v1.MiddlewarePatchInterval)

	return r
}
