package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/asodocumentflow/internal/gcp"
	"github.com/Lllllllleong/asodocumentflow/internal/models"
	"github.com/Lllllllleong/asodocumentflow/internal/pdfdoc"
)

// Object metadata keys read by the inbox processor.
const (
	MetaSplitMode     = "split-mode"
	MetaPagesPerChunk = "pages-per-chunk"
	MetaRanges        = "ranges"
	MetaPages         = "pages"
	MetaNaming        = "naming"
	MetaPattern       = "pattern"
)

type InboxConfig struct {
	ProjectID         string
	OutputBucket      string
	CollectionName    string
	WorkflowID        string
	WorkflowLocation  string
	UploadConcurrency int
	// StaleAfter is how long an unfinished job may go without finishing
	// before a redelivered event takes it over. Zero never takes over.
	StaleAfter time.Duration
}

// InboxProcessor splits PDFs dropped into the inbox bucket and writes the
// named outputs to the output bucket.
type InboxProcessor struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	pipeline         *Pipeline
	config           InboxConfig
}

// GCSEvent is the payload of a storage object finalize event.
type GCSEvent struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
}

// NewInboxProcessor creates the storage, Firestore and (when a workflow is
// configured) Workflows clients.
func NewInboxProcessor(ctx context.Context, config InboxConfig, pipeline *Pipeline) (*InboxProcessor, error) {
	if config.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if config.OutputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	if config.UploadConcurrency <= 0 {
		config.UploadConcurrency = 10
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	f := &InboxProcessor{
		firestoreClient: firestoreClient,
		storageClient:   storageClient,
		pipeline:        pipeline,
		config:          config,
	}
	if config.WorkflowID != "" {
		f.executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}
	slog.Info("Inbox processor initialized.", "outputBucket", config.OutputBucket, "workflowId", config.WorkflowID, "aiEnabled", pipeline.AIEnabled())
	return f, nil
}

// InboxOptions is how an inbox object asks to be split and named.
type InboxOptions struct {
	Text     pdfdoc.SpecText
	Spec     pdfdoc.PartitionSpec
	Naming   NamingMode
	Pattern  string
	Warnings []*pdfdoc.InputError
}

// OptionsFromMetadata reads split options from object metadata. Objects
// without options are split one page per document.
func OptionsFromMetadata(md map[string]string) (InboxOptions, error) {
	opts := InboxOptions{
		Text: pdfdoc.SpecText{
			Mode:          md[MetaSplitMode],
			PagesPerChunk: md[MetaPagesPerChunk],
			Ranges:        md[MetaRanges],
			Pages:         md[MetaPages],
		},
		Pattern: md[MetaPattern],
	}
	if strings.TrimSpace(opts.Text.Mode) == "" {
		opts.Text.Mode = string(pdfdoc.ModeOnePerPage)
	}

	var err error
	opts.Spec, opts.Warnings, err = opts.Text.Parse()
	if err != nil {
		return InboxOptions{}, err
	}
	opts.Naming, err = ParseNamingMode(md[MetaNaming])
	if err != nil {
		return InboxOptions{}, err
	}
	if opts.Naming == NamingManual {
		return InboxOptions{}, fmt.Errorf("naming mode %q needs per-file names and is not available for inbox uploads", opts.Naming)
	}
	return opts, nil
}

func (f *InboxProcessor) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	if !strings.EqualFold(path.Ext(e.Name), ".pdf") && e.ContentType != ContentTypePDF {
		logCtx.Info("Object is not a PDF. Skipping.", "contentType", e.ContentType)
		return nil
	}

	source, err := gcp.ReadObject(ctx, f.storageClient.Bucket(e.Bucket), e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash := calculateHash(source)
	logCtx = logCtx.With("fileHash", fileHash)

	docRef, err := f.claimJob(ctx, logCtx, fileHash, DedupeKey(fileHash, e.Metadata), e.Name)
	if err != nil {
		logCtx.Error("Failed to claim job document", "error", err)
		return err
	}
	if docRef == nil {
		return nil
	}
	logCtx = logCtx.With("jobId", docRef.ID)

	opts, err := OptionsFromMetadata(e.Metadata)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "invalid split options in object metadata", err)
	}

	res, err := f.splitAndName(ctx, logCtx, docRef, source, opts)
	if err != nil {
		// Error is already logged and handled in splitAndName
		return err
	}

	outputs, err := f.uploadOutputs(ctx, logCtx, docRef, res.Units)
	if err != nil {
		// Error is already logged and handled in uploadOutputs
		return err
	}

	if err := f.completeJob(ctx, docRef, res, outputs); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status to COMPLETED", err)
	}

	if err := f.triggerWorkflow(ctx, logCtx, docRef, outputs); err != nil {
		// Error is already logged and handled in triggerWorkflow
		return err
	}

	logCtx.Info("Inbox job complete.", "outputCount", len(outputs), "failureCount", len(res.Report.Failures))
	return nil
}

// DedupeKey identifies an inbox request. The same bytes dropped again with
// different split options are a new request.
func DedupeKey(fileHash string, md map[string]string) string {
	mode := strings.ToLower(strings.TrimSpace(md[MetaSplitMode]))
	if mode == "" {
		mode = string(pdfdoc.ModeOnePerPage)
	}
	namingMode := strings.ToLower(strings.TrimSpace(md[MetaNaming]))
	if namingMode == "" {
		namingMode = string(NamingPositional)
	}

	h := sha256.New()
	for _, field := range []string{
		fileHash,
		mode,
		strings.TrimSpace(md[MetaPagesPerChunk]),
		strings.TrimSpace(md[MetaRanges]),
		strings.TrimSpace(md[MetaPages]),
		namingMode,
		md[MetaPattern],
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type jobAction int

const (
	jobCreate jobAction = iota
	jobResume
	jobSkip
)

// decideJob picks what to do with an event whose dedupe key matches
// existing. Completed jobs are never redone; failed ones are retried, and
// unfinished ones only once they have gone stale.
func decideJob(existing *models.Job, now time.Time, staleAfter time.Duration) jobAction {
	if existing == nil {
		return jobCreate
	}
	switch existing.Status {
	case models.StatusCompleted:
		return jobSkip
	case models.StatusFailed:
		return jobResume
	}
	started := existing.StartedAt
	if started.IsZero() {
		started = existing.CreatedAt
	}
	if staleAfter > 0 && !started.IsZero() && now.Sub(started) > staleAfter {
		return jobResume
	}
	return jobSkip
}

// claimJob returns the job document this event should work on, or nil when
// another delivery already owns the request.
func (f *InboxProcessor) claimJob(ctx context.Context, logCtx *slog.Logger, fileHash, dedupeKey, filename string) (*firestore.DocumentRef, error) {
	snap, err := gcp.FindFirst(ctx, f.firestoreClient.Collection(f.config.CollectionName), "dedupeKey", dedupeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	var existing *models.Job
	if snap != nil {
		existing = &models.Job{}
		if err := snap.DataTo(existing); err != nil {
			return nil, fmt.Errorf("failed to decode job %s: %w", snap.Ref.ID, err)
		}
	}

	switch decideJob(existing, time.Now(), f.config.StaleAfter) {
	case jobSkip:
		logCtx.Info("Duplicate file detected. Skipping.", "existingJobId", snap.Ref.ID, "status", existing.Status)
		return nil, nil
	case jobResume:
		logCtx.Info("Resuming unfinished job.", "jobId", snap.Ref.ID, "status", existing.Status, "attempts", existing.Attempts)
		if err := f.resumeJob(ctx, snap.Ref); err != nil {
			return nil, err
		}
		return snap.Ref, nil
	}

	docRef, err := f.createInitialJob(ctx, fileHash, dedupeKey, filename)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Created job document in Firestore.", "jobId", docRef.ID)
	return docRef, nil
}

func (f *InboxProcessor) resumeJob(ctx context.Context, docRef *firestore.DocumentRef) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusValidating},
		{Path: "errorDetails", Value: firestore.Delete},
		{Path: "attempts", Value: firestore.Increment(1)},
		{Path: "startedAt", Value: time.Now()},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to reset job %s: %w", docRef.ID, err)
	}
	return nil
}

func (f *InboxProcessor) createInitialJob(ctx context.Context, fileHash, dedupeKey, filename string) (*firestore.DocumentRef, error) {
	now := time.Now()
	newJob := models.Job{
		FileHash:         fileHash,
		DedupeKey:        dedupeKey,
		OriginalFilename: filename,
		Status:           models.StatusValidating,
		Attempts:         1,
		CreatedAt:        now,
		StartedAt:        now,
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, newJob)
	if err != nil {
		return nil, fmt.Errorf("failed to create job document: %w", err)
	}
	return docRef, nil
}

func (f *InboxProcessor) splitAndName(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, source []byte, opts InboxOptions) (*Result, error) {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusSplitting},
		{Path: "splitMode", Value: string(opts.Spec.Mode)},
		{Path: "naming", Value: string(opts.Naming)},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to SPLITTING", err)
	}

	res, err := f.pipeline.Split(ctx, SplitRequest{
		Source:        source,
		Spec:          opts.Spec,
		Naming:        opts.Naming,
		Pattern:       opts.Pattern,
		InputWarnings: opts.Warnings,
		BeforeNaming: func(units int) {
			if _, err := docRef.Update(ctx, []firestore.Update{{Path: "status", Value: models.StatusNaming}}); err != nil {
				logCtx.Warn("Failed to update status to NAMING.", "error", err)
			}
		},
		Progress: func(done, total int) {
			logCtx.Debug("Unit named.", "done", done, "total", total)
		},
	})
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to split PDF", err)
	}
	logCtx.Info("PDF split and named.", "pageCount", res.PageCount, "unitCount", len(res.Units))
	return res, nil
}

// OutputObjectName is where a unit of a job lands in the output bucket.
func OutputObjectName(jobID string, unitName string) string {
	return jobID + "/" + unitName
}

func (f *InboxProcessor) uploadOutputs(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, units []OutputUnit) ([]models.JobOutput, error) {
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "status", Value: models.StatusUploading}}); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to UPLOADING", err)
	}

	logCtx.Info("Starting concurrent upload of outputs.", "unitCount", len(units))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.UploadConcurrency)

	outputs := make([]models.JobOutput, len(units))
	for i, u := range units {
		objectName := OutputObjectName(docRef.ID, u.Name)
		outputs[i] = models.JobOutput{
			Name:      u.Name,
			GCSUri:    gcp.GCSUri(f.config.OutputBucket, objectName),
			PageCount: u.Pages,
		}
		eg.Go(func() error {
			if err := f.uploadFile(gctx, u.Data, objectName); err != nil {
				return fmt.Errorf("unit %d: %w", i+1, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "one or more outputs failed to upload", err)
	}
	logCtx.Info("All outputs uploaded successfully.")
	return outputs, nil
}

func (f *InboxProcessor) completeJob(ctx context.Context, docRef *firestore.DocumentRef, res *Result, outputs []models.JobOutput) error {
	failures := make([]models.NamingFailure, len(res.Report.Failures))
	for i, uf := range res.Report.Failures {
		failures[i] = models.NamingFailure{Index: uf.Index, Name: uf.Name, Reason: uf.Reason}
	}
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusCompleted},
		{Path: "pageCount", Value: res.PageCount},
		{Path: "outputs", Value: outputs},
		{Path: "warnings", Value: res.Report.Warnings},
		{Path: "failures", Value: failures},
		{Path: "completedAt", Value: firestore.ServerTimestamp},
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func (f *InboxProcessor) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, outputs []models.JobOutput) error {
	if f.executionsClient == nil {
		logCtx.Info("No workflow configured. Skipping hand-off.")
		return nil
	}

	logCtx.Info("Triggering workflow.")
	payloadBytes, err := json.Marshal(models.WorkflowRequest{
		JobID:        docRef.ID,
		OutputBucket: f.config.OutputBucket,
		Outputs:      outputs,
	})
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to marshal workflow payload", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	execution, err := f.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "workflowExecutionId", Value: execution.GetName()}}); err != nil {
		logCtx.Warn("Failed to record workflow execution id.", "error", err)
	}
	return nil
}

func (f *InboxProcessor) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func (f *InboxProcessor) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func (f *InboxProcessor) uploadFile(ctx context.Context, data []byte, destObject string) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()
			return gcp.SaveToGCSAtomically(writeCtx, f.storageClient.Bucket(f.config.OutputBucket), destObject, ContentTypePDF, data)
		}()

		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}

func calculateHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
