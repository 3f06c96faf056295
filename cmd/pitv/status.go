package main

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mikey-austin/pitv/internal/adapters/output"
	"github.com/mikey-austin/pitv/internal/core"
)

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show player status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			return app.withReady(cmd.Context(), func(_ *session, snap core.Snapshot) error {
				return app.printer.Print(snap)
			})
		},
	}
}

func watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow player status and alerts until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx := cmd.Context()
			return app.withReady(ctx, func(s *session, _ core.Snapshot) error {
				w := watcher{app: app}
				for {
					if err := w.render(s.client.Snapshot()); err != nil {
						return err
					}
					select {
					case <-ctx.Done():
						return nil
					case <-s.updates:
					}
				}
			})
		},
	}
}

// watcher prints only what changed between snapshots.
type watcher struct {
	app       *app
	lastLine  string
	lastJSON  []byte
	lastAlert int64
}

func (w *watcher) render(snap core.Snapshot) error {
	if w.app.json {
		payload, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if bytes.Equal(payload, w.lastJSON) {
			return nil
		}
		w.lastJSON = payload
		return w.app.printer.Print(snap)
	}

	if line := output.StatusLine(snap); line != w.lastLine {
		w.lastLine = line
		if err := w.app.printer.Print(output.Message(line)); err != nil {
			return err
		}
	}
	for _, alert := range snap.Alerts {
		if alert.ID <= w.lastAlert {
			continue
		}
		w.lastAlert = alert.ID
		if err := w.app.printer.Print(alert); err != nil {
			return err
		}
	}
	return nil
}

func lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			return app.withReady(cmd.Context(), func(_ *session, snap core.Snapshot) error {
				return app.printer.Print(videoList(snap))
			})
		},
	}
}

func videoList(snap core.Snapshot) output.VideoList {
	list := output.VideoList{Videos: make([]output.VideoRow, 0, len(snap.Player.Videos))}
	if snap.Player.CurrentlyPlaying != nil {
		list.Current = *snap.Player.CurrentlyPlaying
	}
	for _, video := range snap.Player.Videos {
		row := output.VideoRow{Path: video.Path, Title: video.Title, IsRRated: video.IsRRated}
		if video.Duration > 0 {
			row.Duration = core.FormatDuration(video.Duration, false)
		}
		list.Videos = append(list.Videos, row)
	}
	return list
}
