package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/pitv/internal/adapters/output"
	"github.com/mikey-austin/pitv/internal/core"
)

func editCommand() *cobra.Command {
	var (
		title       string
		description string
		rrated      bool
		image       string
		noImage     bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "edit <path>",
		Short: "Edit a video's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			path := args[0]
			return app.withReady(cmd.Context(), func(s *session, _ core.Snapshot) error {
				buf, err := s.client.BeginEdit(path)
				if err != nil {
					return err
				}
				fields := buf.Fields
				flags := cmd.Flags()
				if flags.Changed("title") {
					fields.Title = title
				}
				if flags.Changed("description") {
					fields.Description = description
				}
				if flags.Changed("rrated") {
					fields.IsRRated = rrated
				}
				if flags.Changed("image") {
					fields.Image = &image
				}
				if noImage {
					fields.Image = nil
				}
				if err := s.client.SetEdit(path, fields); err != nil {
					return err
				}
				buf.Fields = fields
				if err := app.printer.Print(buf); err != nil {
					return err
				}
				if dryRun {
					s.client.CancelEdit(path)
					return nil
				}
				if err := s.client.CommitEdit(path); err != nil {
					return err
				}
				return app.printer.Print(output.Message("saved " + path))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title (empty keeps the current title)")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().BoolVar(&rrated, "rrated", false, "mark as R-rated")
	cmd.Flags().StringVar(&image, "image", "", "image URL")
	cmd.Flags().BoolVar(&noImage, "no-image", false, "clear the image")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the edit without saving")
	cmd.MarkFlagsMutuallyExclusive("image", "no-image")

	return cmd
}

func imdbCommand() *cobra.Command {
	var (
		pick          int
		noTitle       bool
		noDescription bool
		noImage       bool
		apply         bool
	)

	cmd := &cobra.Command{
		Use:   "imdb <path>",
		Short: "Search IMDb for a video's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			path := args[0]
			if pick < 0 {
				return core.WrapError(core.ExitUsage, "--pick must not be negative", nil)
			}
			return app.withReady(cmd.Context(), func(s *session, _ core.Snapshot) error {
				if err := s.client.StartImdbSearch(path); err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), app.timeout)
				defer cancel()
				_, err := s.waitFor(ctx, "search results", func(snap core.Snapshot) bool {
					return snap.Search.Path == path && !snap.Search.Working
				})
				if err != nil {
					s.client.CancelEdit(path)
					return err
				}

				for i := 0; i < pick; i++ {
					if !s.client.ImdbNext() {
						s.client.CancelEdit(path)
						return core.WrapError(core.ExitNotFound, "no such result", nil)
					}
				}
				snap := s.client.Snapshot()
				if err := app.printer.Print(snap.Search); err != nil {
					return err
				}
				if !apply || len(snap.Search.Results) == 0 {
					s.client.ImdbReset()
					s.client.CancelEdit(path)
					return nil
				}

				s.client.SetImdbFields(!noTitle, !noDescription, !noImage)
				if err := s.client.ImdbDone(); err != nil {
					return err
				}
				if buf, ok := s.client.Snapshot().Edits[path]; ok {
					if err := app.printer.Print(buf); err != nil {
						return err
					}
				}
				if err := s.client.CommitEdit(path); err != nil {
					return err
				}
				return app.printer.Print(output.Message("saved " + path))
			})
		},
	}

	cmd.Flags().IntVar(&pick, "pick", 0, "result index to select")
	cmd.Flags().BoolVar(&noTitle, "no-title", false, "keep the current title")
	cmd.Flags().BoolVar(&noDescription, "no-description", false, "keep the current description")
	cmd.Flags().BoolVar(&noImage, "no-image", false, "keep the current image")
	cmd.Flags().BoolVar(&apply, "apply", false, "copy the selected result into the video and save")

	return cmd
}
