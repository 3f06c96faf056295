package output

import (
	"io"
	"os"
)

// Printer renders command results.
type Printer interface {
	Print(v any) error
}

// Message is a one-line confirmation.
type Message string

// VideoList is the catalog with the playing video marked.
type VideoList struct {
	Videos  []VideoRow `json:"videos"`
	Current string     `json:"currentlyPlaying,omitempty"`
}

// VideoRow is one catalog entry.
type VideoRow struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	IsRRated bool   `json:"isRRated"`
	Duration string `json:"duration,omitempty"`
}

func writerOrStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
