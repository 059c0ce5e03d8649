package main

import (
	"net/http"

	"github.com/angeloszaimis/circuit-breaker/internal/handler"
)

func setupRouter(breakerHandler *handler.BreakerHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /breakers", breakerHandler.Snapshot)
	mux.HandleFunc("GET /breakers/{name}", breakerHandler.Status)
	mux.HandleFunc("POST /breakers/reset", breakerHandler.Reset)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}
