// Command server hosts the report-generation endpoint for container
// deployments, alongside health and metrics.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	reportgenerator "github.com/campusreports/report-server/functions/report-generator"
	"github.com/campusreports/report-server/pkg/bootstrap"
)

func main() {
	bootstrap.InitLogger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/generate-report", reportgenerator.GenerateReport)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("Server listening", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
