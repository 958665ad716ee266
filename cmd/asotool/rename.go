package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

func renameCmd(root *rootOptions) *cobra.Command {
	var (
		naming   string
		names    []string
		pattern  string
		out      string
		unpack   bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "rename <pdf>...",
		Short: "Rename ASO certificates from their content, or from a list of names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readInputs(args)
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

			res, err := p.RenameBatch(cmd.Context(), services.RenameRequest{
				Files:    files,
				Naming:   mode,
				Names:    names,
				Pattern:  pattern,
				Progress: progressPrinter(cmd.ErrOrStderr(), progress),
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
	cmd.Flags().StringVar(&naming, "naming", string(services.NamingAI), "naming: ai|positional|manual")
	cmd.Flags().StringArrayVar(&names, "name", nil, "manual name for the next file (repeatable)")
	cmd.Flags().StringVar(&pattern, "pattern", "", `positional name pattern, {numero} is the file number (e.g. "aso_{numero}")`)
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&unpack, "unpack", false, "write each document instead of a ZIP")
	cmd.Flags().BoolVar(&progress, "progress", false, "show naming progress")
	return cmd
}
