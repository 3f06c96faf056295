package output

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// JSONPrinter prints indented JSON, one document per Print.
type JSONPrinter struct {
	Writer io.Writer
}

// Print renders JSON output.
func (p JSONPrinter) Print(v any) error {
	if msg, ok := v.(Message); ok {
		v = map[string]string{"message": string(msg)}
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(writerOrStdout(p.Writer), string(payload))
	return err
}
