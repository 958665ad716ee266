package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/asodocumentflow/internal/pdfdoc"
	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

func splitCmd(root *rootOptions) *cobra.Command {
	var (
		spec     pdfdoc.SpecText
		naming   string
		pattern  string
		names    []string
		out      string
		unpack   bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "split <pdf>",
		Short: "Split a PDF into fixed-size chunks, ranges or single pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			partition, warnings, err := spec.Parse()
			if err != nil {
				return err
			}
			mode, err := services.ParseNamingMode(naming)
			if err != nil {
				return err
			}
			p, _, err := root.pipeline(cmd.Context())
			if err != nil {
				return err
			}

			res, err := p.Split(cmd.Context(), services.SplitRequest{
				Source:        source,
				Spec:          partition,
				Naming:        mode,
				Pattern:       pattern,
				Names:         names,
				InputWarnings: warnings,
				Progress:      progressPrinter(cmd.ErrOrStderr(), progress),
			})
			if err != nil {
				return err
			}
			paths, err := writeResult(res, out, unpack)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), res, paths)
			return nil
		},
	}
	cmd.Flags().StringVarP(&spec.Mode, "mode", "m", string(pdfdoc.ModeOnePerPage), "split mode: fixed|ranges|single|pages")
	cmd.Flags().StringVarP(&spec.PagesPerChunk, "pages-per-chunk", "n", "1", "pages per document in fixed mode")
	cmd.Flags().StringVar(&spec.Ranges, "ranges", "", `ranges mode: list such as "1-3,4-6"`)
	cmd.Flags().StringVar(&spec.Pages, "pages", "", `pages mode: list such as "1,3,5"`)
	cmd.Flags().StringVar(&naming, "naming", string(services.NamingPositional), "naming: positional|ai|manual")
	cmd.Flags().StringVar(&pattern, "pattern", "", `positional name pattern, {numero} is the document number (e.g. "parte_{numero}")`)
	cmd.Flags().StringArrayVar(&names, "name", nil, "manual name for the next document (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&unpack, "unpack", false, "write each document instead of a ZIP")
	cmd.Flags().BoolVar(&progress, "progress", false, "show naming progress")
	return cmd
}
