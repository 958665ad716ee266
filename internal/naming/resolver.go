// Package naming decides the file name of every produced document.
package naming

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/Lllllllleong/asodocumentflow/internal/extract"
)

const (
	// Placeholder is replaced by the 1-based position of the unit.
	Placeholder = "{numero}"
	// UndefinedName is what the model sometimes answers instead of null.
	UndefinedName = "INDEFINIDO"
)

// ErrIncompleteFields means the extractor answered but the name or the date
// was missing or unreadable.
var ErrIncompleteFields = errors.New("employee name or exam date missing")

// Unit is one output document waiting for a name.
type Unit struct {
	Index int
	Data  []byte
	// DefaultName is the mode-specific positional name, without extension.
	DefaultName string
}

// Strategy resolves the file name of a unit. The returned name is always
// sanitized and ends in ".pdf". A non-nil error never means "no name": it
// reports why the strategy fell back to the unit's default name.
type Strategy interface {
	ResolveName(ctx context.Context, u Unit) (string, error)
}

// ExtractionError records a unit whose AI naming fell back to its default.
type ExtractionError struct {
	Index int
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("unit %d: extraction failed: %v", e.Index+1, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// DefaultName is the name a unit gets when no strategy produced one.
func DefaultName(u Unit) string {
	name := Sanitize(u.DefaultName)
	if name == "" {
		name = fmt.Sprintf("documento_%d", u.Index+1)
	}
	return WithExtension(name)
}

// Positional substitutes the unit position into Pattern. An empty pattern
// keeps the unit's default name.
type Positional struct {
	Pattern string
}

func (p Positional) ResolveName(_ context.Context, u Unit) (string, error) {
	if p.Pattern == "" {
		return DefaultName(u), nil
	}
	name := Sanitize(strings.ReplaceAll(p.Pattern, Placeholder, strconv.Itoa(u.Index+1)))
	if name == "" {
		return DefaultName(u), nil
	}
	return WithExtension(name), nil
}

// Manual uses names typed by the user, by position. Blank entries keep the
// default name.
type Manual struct {
	Names []string
}

func (m Manual) ResolveName(_ context.Context, u Unit) (string, error) {
	if u.Index < 0 || u.Index >= len(m.Names) {
		return DefaultName(u), nil
	}
	name := Sanitize(strings.TrimSuffix(m.Names[u.Index], Extension))
	if name == "" {
		return DefaultName(u), nil
	}
	return WithExtension(name), nil
}

// AIConfig tunes the AI-assisted strategy.
type AIConfig struct {
	// Timeout bounds a single extraction call. Zero means no limit.
	Timeout time.Duration
}

// AIAssisted names certificates "ASO DDMMYYYY NAME.pdf" from the fields the
// extractor reads off each unit.
type AIAssisted struct {
	extractor extract.Extractor
	cfg       AIConfig
}

// NewAIAssisted builds the strategy from an explicit extractor and config.
func NewAIAssisted(extractor extract.Extractor, cfg AIConfig) *AIAssisted {
	return &AIAssisted{extractor: extractor, cfg: cfg}
}

func (a *AIAssisted) ResolveName(ctx context.Context, u Unit) (string, error) {
	callCtx := ctx
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	fields, err := a.extractor.Extract(callCtx, u.Data)
	if err != nil {
		return DefaultName(u), &ExtractionError{Index: u.Index, Err: err}
	}
	name, ok := ComposeASOName(fields)
	if !ok {
		return DefaultName(u), &ExtractionError{Index: u.Index, Err: ErrIncompleteFields}
	}
	return name, nil
}

// ComposeASOName builds "ASO DDMMYYYY NAME.pdf". It reports false when the
// name is absent or the date cannot be normalized.
func ComposeASOName(f extract.Fields) (string, bool) {
	employee := norm.NFC.String(strings.TrimSpace(f.EmployeeName))
	if employee == "" || strings.EqualFold(employee, UndefinedName) {
		return "", false
	}
	date := NormalizeDate(f.ExamDate)
	if date == UnknownDate {
		return "", false
	}
	name := Sanitize("ASO " + date + " " + employee)
	return WithExtension(name), true
}
