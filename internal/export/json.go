package export

import (
	"encoding/json"
	"io"

	"github.com/ropdawg/astral/internal"
)

// JSONExporter exports sessions in the stored history shape, pretty-printed
type JSONExporter struct{}

// Export exports a session to JSON format
func (e *JSONExporter) Export(session *internal.Session, w io.Writer) error {
	out := session.Clone()
	if out.Messages == nil {
		out.Messages = []internal.Message{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
