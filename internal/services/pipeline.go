package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/asodocumentflow/internal/archive"
	"github.com/Lllllllleong/asodocumentflow/internal/extract"
	"github.com/Lllllllleong/asodocumentflow/internal/naming"
	"github.com/Lllllllleong/asodocumentflow/internal/pdfdoc"
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypeZIP = "application/zip"

	SplitArchiveName  = "pdf_dividido.zip"
	RenameArchiveName = "asos_renomeados.zip"
	DefaultMergeName  = "pdfs_unidos"
)

// ErrNoOutput means every entry of the request was skipped.
var ErrNoOutput = errors.New("no documents were produced")

// NamingMode selects the naming strategy for a request.
type NamingMode string

const (
	NamingPositional NamingMode = "positional"
	NamingAI         NamingMode = "ai"
	NamingManual     NamingMode = "manual"
)

// ParseNamingMode accepts the names used by the HTTP form, the CLI and object metadata.
func ParseNamingMode(s string) (NamingMode, error) {
	switch NamingMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", NamingPositional:
		return NamingPositional, nil
	case NamingAI:
		return NamingAI, nil
	case NamingManual:
		return NamingManual, nil
	}
	return "", fmt.Errorf("unknown naming mode %q", s)
}

// ProgressFunc is called once per named unit. Calls are serialized.
type ProgressFunc func(done, total int)

// PipelineConfig bounds the extraction fan-out.
type PipelineConfig struct {
	Concurrency    int
	ExtractTimeout time.Duration
}

// Pipeline runs split, rename and merge invocations. Each invocation owns its
// documents; nothing is shared between calls.
type Pipeline struct {
	extractor extract.Extractor
	config    PipelineConfig
}

// NewPipeline creates a pipeline. A nil extractor disables AI naming; such
// requests fall back to positional names with a warning.
func NewPipeline(extractor extract.Extractor, config PipelineConfig) *Pipeline {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	return &Pipeline{extractor: extractor, config: config}
}

// BuildPipeline creates the extractor described by ecfg and wraps it in a
// pipeline. A missing credential yields a pipeline without AI naming.
func BuildPipeline(ctx context.Context, ecfg extract.Config, pcfg PipelineConfig) (*Pipeline, error) {
	extractor, err := extract.New(ctx, ecfg)
	if errors.Is(err, extract.ErrDisabled) {
		slog.Warn("AI naming disabled: no extractor credential configured.", "backend", ecfg.Backend)
		return NewPipeline(nil, pcfg), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	return NewPipeline(extractor, pcfg), nil
}

// AIEnabled reports whether an extractor is configured.
func (p *Pipeline) AIEnabled() bool { return p.extractor != nil }

// InputFile is an uploaded document and the name it came with.
type InputFile struct {
	Name string
	Data []byte
}

// OutputUnit is a produced document and its resolved file name.
type OutputUnit struct {
	Name  string
	Data  []byte
	Pages int
}

// UnitFailure is a unit whose naming degraded to its fallback name.
type UnitFailure struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report collects everything that went wrong without stopping the invocation.
type Report struct {
	Warnings []string      `json:"warnings,omitempty"`
	Failures []UnitFailure `json:"failures,omitempty"`
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Result is what an invocation hands back: a single PDF, or a ZIP when more
// than one unit was produced.
type Result struct {
	FileName    string
	ContentType string
	Data        []byte
	Units       []OutputUnit
	PageCount   int
	Report      Report
}

// SplitRequest describes one split invocation.
type SplitRequest struct {
	Source  []byte
	Spec    pdfdoc.PartitionSpec
	Naming  NamingMode
	Pattern string
	// Names are used, by position, under manual naming.
	Names []string
	// InputWarnings are entries already dropped while parsing the partition text.
	InputWarnings []*pdfdoc.InputError
	Progress      ProgressFunc
	// BeforeNaming is called once with the unit count after the source is
	// split and before any unit is named.
	BeforeNaming func(units int)
}

// Split partitions the source, names every segment and packages the result.
func (p *Pipeline) Split(ctx context.Context, req SplitRequest) (*Result, error) {
	logCtx := slog.With("invocationId", uuid.NewString(), "operation", "split", "mode", req.Spec.Mode, "naming", req.Naming)

	res := &Result{}
	for _, w := range req.InputWarnings {
		res.Report.warn("%s", w.Error())
	}

	doc, err := pdfdoc.Load(req.Source)
	if err != nil {
		logCtx.Error("Failed to open source PDF.", "error", err)
		return nil, err
	}
	res.PageCount = doc.PageCount()

	segments, warnings, err := pdfdoc.Split(doc, req.Spec)
	if err != nil {
		logCtx.Error("Failed to split PDF.", "error", err)
		return nil, err
	}
	for _, w := range warnings {
		res.Report.warn("%s", w.Error())
	}
	logCtx.Info("PDF split.", "pageCount", doc.PageCount(), "segmentCount", len(segments), "warningCount", len(res.Report.Warnings))

	units := make([]naming.Unit, len(segments))
	pages := make([]int, len(segments))
	for i, seg := range segments {
		units[i] = naming.Unit{Index: i, Data: seg.Document.Bytes(), DefaultName: seg.DefaultName}
		pages[i] = seg.Document.PageCount()
	}

	if req.BeforeNaming != nil {
		req.BeforeNaming(len(units))
	}
	strategy := p.strategy(req.Naming, req.Pattern, req.Names, &res.Report)
	names := p.resolveNames(ctx, logCtx, units, strategy, req.Progress, &res.Report)

	for i, u := range units {
		res.Units = append(res.Units, OutputUnit{Name: names[i], Data: u.Data, Pages: pages[i]})
	}
	if err := res.pack(SplitArchiveName); err != nil {
		return nil, err
	}
	logCtx.Info("Split complete.", "outputCount", len(res.Units), "failureCount", len(res.Report.Failures))
	return res, nil
}

// RenameRequest describes one rename-batch invocation.
type RenameRequest struct {
	Files    []InputFile
	Naming   NamingMode
	Names    []string
	Pattern  string
	Progress ProgressFunc
}

// RenameBatch gives every uploaded document a new name. Under AI naming a
// document that cannot be read keeps its own (sanitized) file name.
func (p *Pipeline) RenameBatch(ctx context.Context, req RenameRequest) (*Result, error) {
	logCtx := slog.With("invocationId", uuid.NewString(), "operation", "rename", "naming", req.Naming)

	res := &Result{}
	units := make([]naming.Unit, len(req.Files))
	pages := make([]int, len(req.Files))
	for i, f := range req.Files {
		doc, err := pdfdoc.Load(f.Data)
		if err != nil {
			logCtx.Error("Failed to open uploaded PDF.", "file", f.Name, "error", err)
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		base := filepath.Base(f.Name)
		units[i] = naming.Unit{
			Index:       i,
			Data:        f.Data,
			DefaultName: strings.TrimSuffix(base, filepath.Ext(base)),
		}
		pages[i] = doc.PageCount()
		res.PageCount += doc.PageCount()
	}

	strategy := p.strategy(req.Naming, req.Pattern, req.Names, &res.Report)
	names := p.resolveNames(ctx, logCtx, units, strategy, req.Progress, &res.Report)

	for i, u := range units {
		res.Units = append(res.Units, OutputUnit{Name: names[i], Data: u.Data, Pages: pages[i]})
	}
	if err := res.pack(RenameArchiveName); err != nil {
		return nil, err
	}
	logCtx.Info("Rename complete.", "outputCount", len(res.Units), "failureCount", len(res.Report.Failures))
	return res, nil
}

// MergeRequest describes one merge invocation.
type MergeRequest struct {
	Files []InputFile
	Name  string
}

// Merge concatenates the files in order into one PDF.
func (p *Pipeline) Merge(ctx context.Context, req MergeRequest) (*Result, error) {
	logCtx := slog.With("invocationId", uuid.NewString(), "operation", "merge", "fileCount", len(req.Files))

	inputs := make([][]byte, len(req.Files))
	for i, f := range req.Files {
		inputs[i] = f.Data
	}
	merged, err := pdfdoc.Merge(inputs)
	if err != nil {
		var mergeErr *pdfdoc.MergeError
		if errors.As(err, &mergeErr) && mergeErr.Index >= 0 && mergeErr.Index < len(req.Files) {
			err = fmt.Errorf("%s: %w", req.Files[mergeErr.Index].Name, err)
		}
		logCtx.Error("Failed to merge PDFs.", "error", err)
		return nil, err
	}

	name := naming.Sanitize(strings.TrimSuffix(req.Name, naming.Extension))
	if name == "" {
		name = DefaultMergeName
	}
	name = naming.WithExtension(name)

	logCtx.Info("Merge complete.", "pageCount", merged.PageCount(), "output", name)
	return &Result{
		FileName:    name,
		ContentType: ContentTypePDF,
		Data:        merged.Bytes(),
		Units:       []OutputUnit{{Name: name, Data: merged.Bytes(), Pages: merged.PageCount()}},
		PageCount:   merged.PageCount(),
	}, nil
}

func (p *Pipeline) strategy(mode NamingMode, pattern string, names []string, report *Report) naming.Strategy {
	switch mode {
	case NamingAI:
		if p.extractor == nil {
			report.warn("AI naming is unavailable without a configured credential; using positional names")
			return naming.Positional{Pattern: pattern}
		}
		return naming.NewAIAssisted(p.extractor, naming.AIConfig{Timeout: p.config.ExtractTimeout})
	case NamingManual:
		return naming.Manual{Names: names}
	default:
		return naming.Positional{Pattern: pattern}
	}
}

// resolveNames names every unit with at most config.Concurrency calls in
// flight. Names are stored by index, so output order never depends on
// completion order.
func (p *Pipeline) resolveNames(ctx context.Context, logCtx *slog.Logger, units []naming.Unit, strategy naming.Strategy, progress ProgressFunc, report *Report) []string {
	names := make([]string, len(units))
	errs := make([]error, len(units))

	var (
		mu   sync.Mutex
		done int
	)
	eg := new(errgroup.Group)
	eg.SetLimit(p.config.Concurrency)

	for i := range units {
		eg.Go(func() error {
			names[i], errs[i] = strategy.ResolveName(ctx, units[i])
			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(units))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		logCtx.Warn("Naming fell back to default.", "unit", i+1, "name", names[i], "error", err)
		report.Failures = append(report.Failures, UnitFailure{Index: i, Name: names[i], Reason: err.Error()})
	}
	return names
}

func (r *Result) pack(archiveName string) error {
	switch len(r.Units) {
	case 0:
		if len(r.Report.Warnings) > 0 {
			return fmt.Errorf("%w: %s", ErrNoOutput, strings.Join(r.Report.Warnings, "; "))
		}
		return ErrNoOutput
	case 1:
		r.FileName = r.Units[0].Name
		r.ContentType = ContentTypePDF
		r.Data = r.Units[0].Data
		return nil
	}

	names := make([]string, len(r.Units))
	for i, u := range r.Units {
		names[i] = u.Name
	}
	entries := make([]archive.Entry, len(r.Units))
	for i, name := range archive.UniqueNames(names) {
		r.Units[i].Name = name
		entries[i] = archive.Entry{Name: name, Data: r.Units[i].Data}
	}
	data, err := archive.Pack(entries)
	if err != nil {
		return fmt.Errorf("failed to package outputs: %w", err)
	}
	r.FileName = archiveName
	r.ContentType = ContentTypeZIP
	r.Data = data
	return nil
}
