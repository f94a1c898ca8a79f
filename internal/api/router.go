package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	apimiddleware "github.com/starweave/starweave/internal/api/middleware"
	"github.com/starweave/starweave/internal/api/response"
	"github.com/starweave/starweave/internal/dispatch"
	"github.com/starweave/starweave/internal/middleware"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Dispatcher *dispatch.Dispatcher
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(apimiddleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	// The single generic command endpoint: the body is a {type, payload}
	// envelope and the response carries the handler's status code
	api.Handle("/commands", commandsHandler(cfg.Dispatcher)).Methods(http.MethodPost)

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func commandsHandler(d *dispatch.Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env dispatch.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			response.JSON(w, http.StatusBadRequest, map[string]string{
				"error": "request body must be a command envelope",
			})
			return
		}
		res := d.Dispatch(r.Context(), env)
		if res.Payload == nil {
			w.WriteHeader(res.StatusCode)
			return
		}
		response.JSON(w, res.StatusCode, res.Payload)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
