// Package testutil builds small in-memory PDFs for tests.
package testutil

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageHeight is the height of every generated page.
const PageHeight = 200

// NewPDF returns a valid PDF with n pages. Page i (1-indexed) is base+i
// points wide, so page order survives splitting and merging and can be read
// back with PageWidths.
func NewPDF(n, base int) []byte {
	var buf bytes.Buffer
	objCount := 2 + 2*n
	offsets := make([]int, objCount+1)

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := make([]string, n)
	for i := 0; i < n; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))

	for i := 0; i < n; i++ {
		pageNum := 3 + 2*i
		contentNum := pageNum + 1
		width := base + i + 1
		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << >> /Contents %d 0 R >>",
			width, PageHeight, contentNum))
		content := fmt.Sprintf("0 0 m %d %d l S", width, PageHeight)
		writeObj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objCount+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= objCount; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objCount+1, xrefOffset)
	return buf.Bytes()
}

// PageWidths reads back the width of every page, in page order.
func PageWidths(data []byte) ([]int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	widths := make([]int, len(dims))
	for i, d := range dims {
		widths[i] = int(math.Round(d.Width))
	}
	return widths, nil
}

// Widths is the expected PageWidths result for pages first..last of a PDF
// built with NewPDF(_, base).
func Widths(base, first, last int) []int {
	out := make([]int, 0, last-first+1)
	for p := first; p <= last; p++ {
		out = append(out, base+p)
	}
	return out
}
