package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pterm/pterm"

	"github.com/mikey-austin/pitv/internal/core"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

func init() {
	pterm.DisableColor()
}

func ptr[T any](v T) *T { return &v }

func TestJSONPrinterHidesCredential(t *testing.T) {
	var buf bytes.Buffer
	snap := core.Snapshot{
		State:       core.StateAuthorized,
		Preferences: pitv.Preferences{Credential: "hunter2"},
		Player:      pitv.PlayerState{Position: ptr(int64(12))},
	}
	if err := (JSONPrinter{Writer: &buf}).Print(snap); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Fatalf("credential leaked: %s", buf.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["state"] != "authorized" {
		t.Fatalf("unexpected state %v", decoded["state"])
	}
}

func TestJSONPrinterWrapsMessages(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONPrinter{Writer: &buf}).Print(Message("sent")); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if !strings.Contains(buf.String(), `"message": "sent"`) {
		t.Fatalf("unexpected output %s", buf.String())
	}
}

func TestStatusLine(t *testing.T) {
	snap := core.Snapshot{
		Connection: core.ConnectionSession{Connected: true},
		Player: pitv.PlayerState{
			Videos:           []pitv.Video{{Path: "alien.mp4", Title: "Alien"}},
			CurrentlyPlaying: ptr("alien.mp4"),
			Position:         ptr(int64(65)),
			Duration:         ptr(int64(7020)),
			Playing:          ptr(true),
		},
	}
	if got := StatusLine(snap); got != "[playing]  Alien  0:01:05 (-1:55:55)" {
		t.Fatalf("unexpected status line %q", got)
	}

	snap.Connection.Connected = false
	snap.Status = core.StatusReconnecting
	if got := StatusLine(snap); !strings.Contains(got, "Reconnecting") {
		t.Fatalf("expected status indicator, got %q", got)
	}
}

func TestHumanPrinterVideos(t *testing.T) {
	var buf bytes.Buffer
	list := VideoList{
		Videos: []VideoRow{
			{Path: "alien.mp4", Title: "Alien", IsRRated: true, Duration: "1:57:00"},
			{Path: "up.mp4", Title: "Up"},
		},
		Current: "up.mp4",
	}
	if err := (HumanPrinter{Writer: &buf}).Print(list); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PATH", "alien.mp4", "Alien", "1:57:00", "up.mp4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
}

func TestAlertLineUsesLevelPrefix(t *testing.T) {
	line := AlertLine(pitv.Alert{Message: "disk full", Level: pitv.LevelError})
	if !strings.Contains(line, "ERROR") || !strings.Contains(line, "disk full") {
		t.Fatalf("unexpected alert line %q", line)
	}
}
