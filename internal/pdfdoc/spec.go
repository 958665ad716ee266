package pdfdoc

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitMode selects how a source document is partitioned.
type SplitMode string

const (
	ModeFixedSize     SplitMode = "fixed"
	ModeCustomRanges  SplitMode = "ranges"
	ModeOnePerPage    SplitMode = "single"
	ModeExplicitPages SplitMode = "pages"
)

// ParseMode accepts the mode names used by the HTTP form and the CLI.
func ParseMode(s string) (SplitMode, error) {
	switch SplitMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFixedSize:
		return ModeFixedSize, nil
	case ModeCustomRanges:
		return ModeCustomRanges, nil
	case ModeOnePerPage:
		return ModeOnePerPage, nil
	case ModeExplicitPages:
		return ModeExplicitPages, nil
	}
	return "", &InputError{Entry: s, Reason: "unknown split mode"}
}

// PageRange is an inclusive, 1-indexed range of pages.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// PartitionSpec is the tagged choice of segmentation mode. Only the fields
// belonging to Mode are read.
type PartitionSpec struct {
	Mode          SplitMode
	PagesPerChunk int
	Ranges        []PageRange
	Pages         []int
}

func FixedSize(pagesPerChunk int) PartitionSpec {
	return PartitionSpec{Mode: ModeFixedSize, PagesPerChunk: pagesPerChunk}
}

func CustomRanges(ranges ...PageRange) PartitionSpec {
	return PartitionSpec{Mode: ModeCustomRanges, Ranges: ranges}
}

func OnePerPage() PartitionSpec {
	return PartitionSpec{Mode: ModeOnePerPage}
}

func ExplicitPages(pages ...int) PartitionSpec {
	return PartitionSpec{Mode: ModeExplicitPages, Pages: pages}
}

// SplitList breaks a free-text list such as "1-3, 4-6" or "1;3\n5" into
// trimmed, non-empty entries.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ParseRanges reads "start-end" entries. Entries that do not parse are
// returned as warnings and skipped; bounds are checked later by Plan.
func ParseRanges(entries []string) ([]PageRange, []*InputError) {
	var (
		ranges   []PageRange
		warnings []*InputError
	)
	for _, entry := range entries {
		startStr, endStr, ok := strings.Cut(entry, "-")
		if !ok {
			warnings = append(warnings, &InputError{Entry: entry, Reason: "invalid range ignored"})
			continue
		}
		start, err1 := strconv.Atoi(strings.TrimSpace(startStr))
		end, err2 := strconv.Atoi(strings.TrimSpace(endStr))
		if err1 != nil || err2 != nil {
			warnings = append(warnings, &InputError{Entry: entry, Reason: "invalid range ignored"})
			continue
		}
		ranges = append(ranges, PageRange{Start: start, End: end})
	}
	return ranges, warnings
}

// ParsePages reads page numbers. Non-numeric entries are returned as warnings.
func ParsePages(entries []string) ([]int, []*InputError) {
	var (
		pages    []int
		warnings []*InputError
	)
	for _, entry := range entries {
		n, err := strconv.Atoi(strings.TrimSpace(entry))
		if err != nil {
			warnings = append(warnings, &InputError{Entry: entry, Reason: "invalid page number ignored"})
			continue
		}
		pages = append(pages, n)
	}
	return pages, warnings
}

// SpecText is a PartitionSpec as typed into a form, a flag or object
// metadata. Only the fields belonging to Mode are read.
type SpecText struct {
	Mode          string
	PagesPerChunk string
	Ranges        string
	Pages         string
}

// Parse builds the PartitionSpec. Malformed list entries come back as
// warnings; an unknown mode or a bad chunk size is an error.
func (t SpecText) Parse() (PartitionSpec, []*InputError, error) {
	mode, err := ParseMode(t.Mode)
	if err != nil {
		return PartitionSpec{}, nil, err
	}

	switch mode {
	case ModeFixedSize:
		n, err := strconv.Atoi(strings.TrimSpace(t.PagesPerChunk))
		if err != nil || n < 1 {
			return PartitionSpec{}, nil, &InputError{Entry: t.PagesPerChunk, Reason: "pages per chunk must be a positive integer"}
		}
		return FixedSize(n), nil, nil
	case ModeCustomRanges:
		ranges, warnings := ParseRanges(SplitList(t.Ranges))
		return CustomRanges(ranges...), warnings, nil
	case ModeExplicitPages:
		pages, warnings := ParsePages(SplitList(t.Pages))
		return ExplicitPages(pages...), warnings, nil
	default:
		return OnePerPage(), nil, nil
	}
}
