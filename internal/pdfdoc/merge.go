package pdfdoc

import (
	"bytes"
	"errors"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Merge concatenates the inputs in order, keeping each input's page order.
// Every input is opened first; if any fails, nothing is produced.
func Merge(inputs [][]byte) (Document, error) {
	if len(inputs) == 0 {
		return Document{}, &MergeError{Index: -1, Err: errors.New("no documents to merge")}
	}

	readers := make([]io.ReadSeeker, 0, len(inputs))
	total := 0
	for i, data := range inputs {
		doc, err := Load(data)
		if err != nil {
			return Document{}, &MergeError{Index: i, Err: err}
		}
		total += doc.PageCount()
		readers = append(readers, bytes.NewReader(doc.Bytes()))
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, newConfiguration()); err != nil {
		return Document{}, &MergeError{Index: -1, Err: err}
	}
	return Document{data: buf.Bytes(), pages: total}, nil
}
