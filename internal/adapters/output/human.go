package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/mikey-austin/pitv/internal/core"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

// HumanPrinter prints human-readable output.
type HumanPrinter struct {
	Writer io.Writer
}

// Print renders human output.
func (p HumanPrinter) Print(v any) error {
	w := writerOrStdout(p.Writer)
	switch data := v.(type) {
	case core.Snapshot:
		return printStatus(w, data)
	case VideoList:
		return printVideos(w, data)
	case core.ImdbSearch:
		return printSearch(w, data)
	case core.EditBuffer:
		return printEdit(w, data)
	case pitv.Alert:
		_, err := io.WriteString(w, AlertLine(data))
		return err
	case Message:
		_, err := fmt.Fprintln(w, string(data))
		return err
	default:
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
}

// AlertLine renders an alert with the prefix printer for its level.
func AlertLine(alert pitv.Alert) string {
	return prefixFor(alert.Level).Sprintln(alert.Message)
}

func prefixFor(level pitv.Level) pterm.PrefixPrinter {
	switch level {
	case pitv.LevelSuccess:
		return pterm.Success
	case pitv.LevelWarning:
		return pterm.Warning
	case pitv.LevelError:
		return pterm.Error
	default:
		return pterm.Info
	}
}

// StatusLine is the single-line playback summary used by status and watch.
func StatusLine(snap core.Snapshot) string {
	if !snap.Connection.Connected {
		prefix := prefixFor(snap.Status.Severity)
		return prefix.Sprint(snap.Status.Description)
	}
	player := snap.Player
	state := "stopped"
	if player.Playing != nil && *player.Playing {
		state = "playing"
		if player.Paused != nil && *player.Paused {
			state = "paused"
		}
	}

	title := ""
	if player.CurrentlyPlaying != nil {
		title = *player.CurrentlyPlaying
		for _, video := range player.Videos {
			if video.Path == title && video.Title != "" {
				title = video.Title
				break
			}
		}
	}

	parts := []string{"[" + state + "]"}
	if title != "" {
		parts = append(parts, title)
	}
	if pos := core.PrettyPosition(player); pos != "" {
		if left := core.PrettyTimeleft(player); left != "" {
			pos += " (-" + left + ")"
		}
		parts = append(parts, pos)
	}
	if player.Muted != nil && *player.Muted {
		parts = append(parts, "muted")
	}
	return strings.Join(parts, "  ")
}

func printStatus(w io.Writer, snap core.Snapshot) error {
	if _, err := fmt.Fprintln(w, StatusLine(snap)); err != nil {
		return err
	}
	player := snap.Player
	rrated := "off"
	if player.PlayRRated != nil && *player.PlayRRated {
		rrated = "on"
	}
	role := string(snap.Role)
	if role == "" {
		role = "-"
	}
	if _, err := fmt.Fprintf(w, "role %s  r-rated %s  videos %d\n", role, rrated, len(player.Videos)); err != nil {
		return err
	}
	if len(player.Download) > 0 && string(player.Download) != "null" {
		if _, err := fmt.Fprintf(w, "download %s\n", string(player.Download)); err != nil {
			return err
		}
	}
	for _, alert := range snap.Alerts {
		if _, err := io.WriteString(w, AlertLine(alert)); err != nil {
			return err
		}
	}
	return nil
}

func printVideos(w io.Writer, list VideoList) error {
	data := pterm.TableData{{"", "PATH", "TITLE", "R", "LEN"}}
	for _, video := range list.Videos {
		marker := ""
		if video.Path == list.Current {
			marker = ">"
		}
		rated := ""
		if video.IsRRated {
			rated = "R"
		}
		data = append(data, []string{marker, video.Path, video.Title, rated, video.Duration})
	}
	return renderTable(w, data)
}

func printSearch(w io.Writer, search core.ImdbSearch) error {
	if search.Working {
		_, err := fmt.Fprintf(w, "searching %s...\n", search.Path)
		return err
	}
	if len(search.Results) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	data := pterm.TableData{{"", "#", "ID", "TITLE", "YEAR", "DESCRIPTION"}}
	for idx, candidate := range search.Results {
		marker := ""
		if idx == search.Index {
			marker = ">"
		}
		year := ""
		if candidate.Year != nil {
			year = strconv.Itoa(*candidate.Year)
		}
		data = append(data, []string{
			marker,
			strconv.Itoa(idx),
			candidate.ID,
			deref(candidate.Title),
			year,
			truncate(deref(candidate.Description), 60),
		})
	}
	return renderTable(w, data)
}

func printEdit(w io.Writer, buf core.EditBuffer) error {
	data := pterm.TableData{
		{"FIELD", "VALUE"},
		{"path", buf.Path},
		{"title", buf.Fields.Title},
		{"description", buf.Fields.Description},
		{"r-rated", strconv.FormatBool(buf.Fields.IsRRated)},
		{"image", deref(buf.Fields.Image)},
	}
	return renderTable(w, data)
}

func renderTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
