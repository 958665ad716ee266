package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

func mergeCmd(root *rootOptions) *cobra.Command {
	var (
		name string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "merge <pdf> <pdf>...",
		Short: "Concatenate PDFs in the order given",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readInputs(args)
			if err != nil {
				return err
			}
			res, err := services.NewPipeline(nil, root.loadConfig().Pipeline).Merge(cmd.Context(), services.MergeRequest{Files: files, Name: name})
			if err != nil {
				return err
			}
			paths, err := writeResult(res, out, false)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), res, paths)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", services.DefaultMergeName, "name of the merged PDF")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	return cmd
}
