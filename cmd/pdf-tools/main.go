package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/asodocumentflow/internal/api"
	"github.com/Lllllllleong/asodocumentflow/internal/config"
	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

var (
	server  *api.Server
	once    sync.Once
	initErr error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandlePDFTools" is the entry point name we'll see in GCP.
	functions.HTTP("HandlePDFTools", handlePDFTools)
}

// main is required by the Go Functions Framework.
func main() {}

func handlePDFTools(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		cfg := config.Load()
		var pipeline *services.Pipeline
		pipeline, initErr = services.BuildPipeline(context.Background(), cfg.Extract, cfg.Pipeline)
		if initErr == nil {
			server = api.NewServer(pipeline, slog.Default(), cfg)
		}
	})
	if initErr != nil {
		slog.Error("CRITICAL: PDF tools initialization failed.", "error", initErr)
		http.Error(w, `{"error":"failed to initialize service"}`, http.StatusInternalServerError)
		return
	}
	server.ServeHTTP(w, r)
}
