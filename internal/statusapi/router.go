package statusapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter builds the status API's mux router.
func NewRouter(h *Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(recoverMiddleware)
	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	router.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	return router
}
