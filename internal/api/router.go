// Package api is the HTTP host: web wizard sessions plus read and join
// endpoints for pools and giveaways.
package api

import (
	"net/http"

	"go.uber.org/zap"
)

func NewRouter(svc Service, sessions *Sessions, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	wizardHandler := NewWizardHandler(svc, sessions, logger)
	poolHandler := NewPoolHandler(svc, logger)
	log := func(h http.HandlerFunc) http.HandlerFunc { return WithLogging(logger, h) }

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Wizard sessions
	mux.HandleFunc("POST /wizards", log(wizardHandler.Open))
	mux.HandleFunc("GET /wizards/{id}", log(wizardHandler.Get))
	mux.HandleFunc("POST /wizards/{id}/advance", log(wizardHandler.Advance))
	mux.HandleFunc("POST /wizards/{id}/retreat", log(wizardHandler.Retreat))
	mux.HandleFunc("DELETE /wizards/{id}", log(wizardHandler.Discard))

	// Pools
	mux.HandleFunc("GET /pools", log(poolHandler.ListPools))
	mux.HandleFunc("GET /pools/{id}", log(poolHandler.GetPool))
	mux.HandleFunc("POST /pools/{id}/join", log(poolHandler.JoinPool))
	mux.HandleFunc("DELETE /pools/{id}", log(poolHandler.DeletePool))
	mux.HandleFunc("GET /p/{slug}", log(poolHandler.GetPoolBySlug))

	// Giveaways
	mux.HandleFunc("GET /giveaways", log(poolHandler.ListGiveaways))
	mux.HandleFunc("GET /giveaways/{id}", log(poolHandler.GetGiveaway))
	mux.HandleFunc("POST /giveaways/{id}/enter", log(poolHandler.EnterGiveaway))
	mux.HandleFunc("DELETE /giveaways/{id}", log(poolHandler.DeleteGiveaway))

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ErrorResponse(w, http.StatusNotFound, "Not found")
			return
		}
		w.Write([]byte("poolmini API v1"))
	})

	return CORS(mux)
}
