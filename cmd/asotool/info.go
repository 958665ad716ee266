package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/asodocumentflow/internal/models"
	"github.com/Lllllllleong/asodocumentflow/internal/pdfdoc"
	"github.com/Lllllllleong/asodocumentflow/internal/preview"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <pdf>",
		Short: "Print the page count of a PDF as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := pdfdoc.Load(data)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(models.InfoResponse{PageCount: doc.PageCount()})
		},
	}
}

func thumbnailCmd() *cobra.Command {
	var (
		page int
		size int
		grid int
		out  string
	)

	cmd := &cobra.Command{
		Use:   "thumbnail <pdf>",
		Short: "Render PNG thumbnails of PDF pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))

			var thumbs [][]byte
			first := page
			if grid > 0 {
				first = 1
				thumbs, err = preview.Grid(data, grid, size)
			} else {
				var png []byte
				png, err = preview.Thumbnail(data, page-1, size)
				thumbs = [][]byte{png}
			}
			if err != nil {
				return err
			}

			for i, png := range thumbs {
				path := filepath.Join(out, fmt.Sprintf("%s_pagina_%d.png", stem, first+i))
				if err := os.WriteFile(path, png, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page to render (1-indexed)")
	cmd.Flags().IntVar(&size, "size", preview.DefaultMaxSize, "longest side in pixels")
	cmd.Flags().IntVar(&grid, "grid", 0, "render the first N pages instead of one")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	return cmd
}
