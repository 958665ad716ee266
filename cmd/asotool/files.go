package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

func readInputs(paths []string) ([]services.InputFile, error) {
	files := make([]services.InputFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		files = append(files, services.InputFile{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

// writeResult stores the result in outDir: the single PDF or the ZIP, or
// every unit as its own file when unpack is set. It returns the paths written.
func writeResult(res *services.Result, outDir string, unpack bool) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if !unpack || len(res.Units) == 1 {
		path := filepath.Join(outDir, res.FileName)
		if err := os.WriteFile(path, res.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		return []string{path}, nil
	}

	paths := make([]string, 0, len(res.Units))
	for _, u := range res.Units {
		path := filepath.Join(outDir, u.Name)
		if err := os.WriteFile(path, u.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printReport(w io.Writer, res *services.Result, paths []string) {
	for _, p := range paths {
		fmt.Fprintln(w, p)
	}
	for _, warning := range res.Report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, f := range res.Report.Failures {
		fmt.Fprintf(w, "naming fell back for unit %d (%s): %s\n", f.Index+1, f.Name, f.Reason)
	}
}

func progressPrinter(w io.Writer, enabled bool) services.ProgressFunc {
	if !enabled {
		return nil
	}
	return func(done, total int) {
		fmt.Fprintf(w, "\rnamed %d/%d", done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
