package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/asodocumentflow/internal/config"
	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

var (
	inboxInstance *services.InboxProcessor
	once          sync.Once
	initErr       error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent("SplitInbox", splitInbox)
}

// main is required by the Go Functions Framework.
func main() {}

func newInboxProcessor(ctx context.Context) (*services.InboxProcessor, error) {
	cfg := config.Load()
	if err := cfg.ValidateInbox(); err != nil {
		return nil, err
	}
	pipeline, err := services.BuildPipeline(ctx, cfg.Extract, cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	return services.NewInboxProcessor(ctx, services.InboxConfig{
		ProjectID:         cfg.ProjectID,
		OutputBucket:      cfg.OutputBucket,
		CollectionName:    cfg.CollectionName,
		WorkflowID:        cfg.WorkflowID,
		WorkflowLocation:  cfg.WorkflowLocation,
		UploadConcurrency: cfg.UploadConcurrency,
		StaleAfter:        cfg.InboxStaleAfter,
	}, pipeline)
}

// splitInbox is the Cloud Function entry point for storage finalize events.
func splitInbox(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		inboxInstance, initErr = newInboxProcessor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// The error is already logged with context within the Process method.
	return inboxInstance.Process(ctx, gcsEvent)
}
