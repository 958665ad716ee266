// Package pdfdoc partitions and concatenates PDF documents with pdfcpu.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Serverless file systems are read-only outside /tmp; skip pdfcpu's config dir.
	api.DisableConfigDir()
}

// Document is an immutable PDF: its bytes and page count. Every operation
// produces a new Document.
type Document struct {
	data  []byte
	pages int
}

// Load opens and validates raw PDF bytes. A source that cannot be opened
// yields a *ParseError.
func Load(data []byte) (Document, error) {
	if len(data) == 0 {
		return Document{}, &ParseError{Err: errors.New("empty input")}
	}
	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return Document{}, &ParseError{Err: err}
	}
	return Document{data: data, pages: pdfContext.PageCount}, nil
}

// PageCount reports the number of pages.
func (d Document) PageCount() int { return d.pages }

// Bytes returns the raw PDF. Callers must not modify the slice.
func (d Document) Bytes() []byte { return d.data }

// Len is the size of the raw PDF in bytes.
func (d Document) Len() int { return len(d.data) }

func newConfiguration() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// ParseError means a source document could not be opened. It is fatal to the
// invocation that attempted it.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse PDF: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MergeError means one of the inputs to a merge could not be used. Merges are
// all-or-nothing.
type MergeError struct {
	Index int
	Err   error
}

func (e *MergeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("merge failed: %v", e.Err)
	}
	return fmt.Sprintf("merge failed: input %d: %v", e.Index+1, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// InputError describes one bad entry of a partition spec. Per-entry problems
// are reported as warnings and the entry is skipped; a spec that is unusable
// as a whole is returned as an error.
type InputError struct {
	Entry  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Entry == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %q", e.Reason, e.Entry)
}
