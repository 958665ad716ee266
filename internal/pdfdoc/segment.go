package pdfdoc

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Slice is one planned output: a contiguous page range and the name the
// output gets when nothing better is known.
type Slice struct {
	FirstPage   int
	LastPage    int
	DefaultName string
}

// PageCount is the number of pages the slice covers.
func (s Slice) PageCount() int { return s.LastPage - s.FirstPage + 1 }

func (s Slice) selection() string {
	if s.FirstPage == s.LastPage {
		return strconv.Itoa(s.FirstPage)
	}
	return fmt.Sprintf("%d-%d", s.FirstPage, s.LastPage)
}

// Segment is a produced fragment of the source, in partition order.
type Segment struct {
	Slice
	Index    int
	Document Document
}

// Plan works out which page ranges a PartitionSpec produces for a document of
// totalPages pages. Entries outside [1, totalPages] are skipped and reported.
// Ranges and page lists keep their given order; they are never sorted.
func Plan(totalPages int, spec PartitionSpec) ([]Slice, []*InputError, error) {
	var (
		slices   []Slice
		warnings []*InputError
	)

	switch spec.Mode {
	case ModeFixedSize:
		n := spec.PagesPerChunk
		if n < 1 {
			return nil, nil, &InputError{Entry: strconv.Itoa(n), Reason: "pages per chunk must be a positive integer"}
		}
		// Anything wider than the document is a single chunk; clamping keeps first+n from overflowing.
		n = min(n, max(totalPages, 1))
		for first := 1; first <= totalPages; first += n {
			last := min(first+n-1, totalPages)
			slices = append(slices, Slice{
				FirstPage:   first,
				LastPage:    last,
				DefaultName: fmt.Sprintf("parte_%d", (first-1)/n+1),
			})
		}

	case ModeCustomRanges:
		for _, r := range spec.Ranges {
			if r.Start < 1 || r.Start > r.End || r.End > totalPages {
				warnings = append(warnings, &InputError{Entry: r.String(), Reason: "invalid range ignored"})
				continue
			}
			slices = append(slices, Slice{
				FirstPage:   r.Start,
				LastPage:    r.End,
				DefaultName: fmt.Sprintf("intervalo_%d_a_%d", r.Start, r.End),
			})
		}

	case ModeOnePerPage:
		for p := 1; p <= totalPages; p++ {
			slices = append(slices, pageSlice(p))
		}

	case ModeExplicitPages:
		for _, p := range spec.Pages {
			if p < 1 || p > totalPages {
				warnings = append(warnings, &InputError{Entry: strconv.Itoa(p), Reason: "invalid page number ignored"})
				continue
			}
			slices = append(slices, pageSlice(p))
		}

	default:
		return nil, nil, &InputError{Entry: string(spec.Mode), Reason: "unknown split mode"}
	}

	return slices, warnings, nil
}

func pageSlice(p int) Slice {
	return Slice{FirstPage: p, LastPage: p, DefaultName: fmt.Sprintf("pagina_%d", p)}
}

// Split partitions doc according to spec. Skipped entries come back as
// warnings; a failure to write any planned fragment fails the whole call.
func Split(doc Document, spec PartitionSpec) ([]Segment, []*InputError, error) {
	slices, warnings, err := Plan(doc.PageCount(), spec)
	if err != nil {
		return nil, nil, err
	}

	segments := make([]Segment, 0, len(slices))
	for i, s := range slices {
		data, err := extractPages(doc.Bytes(), s.selection())
		if err != nil {
			return nil, warnings, fmt.Errorf("failed to extract pages %s: %w", s.selection(), err)
		}
		segments = append(segments, Segment{
			Slice:    s,
			Index:    i,
			Document: Document{data: data, pages: s.PageCount()},
		})
	}
	return segments, warnings, nil
}

func extractPages(src []byte, selection string) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(src), &buf, []string{selection}, newConfiguration()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
