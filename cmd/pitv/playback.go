package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/pitv/internal/adapters/output"
	"github.com/mikey-austin/pitv/internal/core"
)

// simpleCommand builds a command that sends one action once the player is ready.
func simpleCommand(use, short string, send func(*core.Client) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			return app.withReady(cmd.Context(), func(s *session, _ core.Snapshot) error {
				if err := send(s.client); err != nil {
					return err
				}
				return app.printer.Print(output.Message("sent"))
			})
		},
	}
}

func randomCommand() *cobra.Command {
	return simpleCommand("random", "Play a random video", (*core.Client).PlayRandom)
}

func pauseCommand() *cobra.Command {
	return simpleCommand("pause", "Toggle pause", (*core.Client).PlayPause)
}

func muteCommand() *cobra.Command {
	return simpleCommand("mute", "Toggle mute", (*core.Client).ToggleMute)
}

func rratedCommand() *cobra.Command {
	return simpleCommand("rrated", "Toggle R-rated playback", (*core.Client).TogglePlayRRated)
}

func playCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "play <path>",
		Short: "Play a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			return app.withReady(cmd.Context(), func(s *session, snap core.Snapshot) error {
				path := args[0]
				if !hasVideo(snap, path) {
					return core.WrapError(core.ExitNotFound, "video "+path, core.ErrUnknownVideo)
				}
				if err := s.client.Play(path); err != nil {
					return err
				}
				return app.printer.Print(output.Message("playing " + path))
			})
		},
	}
}

func downloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "download <url>",
		Short: "Have the player fetch and play a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseDownloadURL(args[0])
			if err != nil {
				return core.WrapError(core.ExitUsage, "invalid url", err)
			}
			app := fromContext(cmd)
			return app.withReady(cmd.Context(), func(s *session, snap core.Snapshot) error {
				if len(snap.Player.Download) > 0 && string(snap.Player.Download) != "null" {
					return core.WrapError(core.ExitRuntime, "a download is already in progress", nil)
				}
				if err := s.client.Download(target); err != nil {
					return err
				}
				return app.printer.Print(output.Message("downloading " + target))
			})
		},
	}
}

// parseDownloadURL accepts absolute http and https URLs.
func parseDownloadURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%q is not an http(s) url", raw)
	}
	return u.String(), nil
}

func seekCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seek <+/-seconds>",
		Short: "Seek relative to the current position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseInt(strings.TrimPrefix(args[0], "+"), 10, 64)
			if err != nil {
				return core.WrapError(core.ExitUsage, "seek must be whole seconds", err)
			}
			app := fromContext(cmd)
			return app.withReady(cmd.Context(), func(s *session, _ core.Snapshot) error {
				if err := s.client.Seek(seconds); err != nil {
					return err
				}
				return app.printer.Print(output.Message("sent"))
			})
		},
	}
}

func positionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "position <seconds|MM:SS|H:MM:SS>",
		Short: "Jump to an absolute position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := parsePosition(args[0])
			if err != nil {
				return core.WrapError(core.ExitUsage, "invalid position", err)
			}
			app := fromContext(cmd)
			return app.withReady(cmd.Context(), func(s *session, _ core.Snapshot) error {
				if err := s.client.SetPosition(seconds); err != nil {
					return err
				}
				return app.printer.Print(output.Message("position " + core.FormatDuration(seconds, false)))
			})
		},
	}
}

// parsePosition accepts plain seconds or colon-separated clock values.
func parsePosition(arg string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(arg), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many fields in %q", arg)
	}
	var total int64
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad field %q in %q", part, arg)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("field %q out of range in %q", part, arg)
		}
		total = total*60 + n
	}
	return total, nil
}

func hasVideo(snap core.Snapshot, path string) bool {
	for _, video := range snap.Player.Videos {
		if video.Path == path {
			return true
		}
	}
	return false
}
