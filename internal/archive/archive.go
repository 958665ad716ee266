// Package archive bundles named documents into a single ZIP.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"
)

// Entry is one file in the bundle.
type Entry struct {
	Name string
	Data []byte
}

// Entry times are pinned so identical input produces identical archives.
var entryTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Pack writes one deflated entry per input, in order. Colliding names are
// made unique first (see UniqueNames), so no entry overwrites another.
func Pack(entries []Entry) ([]byte, error) {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	names = UniqueNames(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, e := range entries {
		hdr := &zip.FileHeader{
			Name:     names[i],
			Method:   zip.Deflate,
			Modified: entryTime,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", names[i], err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", names[i], err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// UniqueNames returns names with later duplicates suffixed: "a.pdf",
// "a (2).pdf", "a (3).pdf". Comparison ignores case so the archive also
// unpacks cleanly on case-insensitive file systems.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		candidate := name
		ext := path.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for n := 2; seen[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		seen[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}
