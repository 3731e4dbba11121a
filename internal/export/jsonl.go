package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ropdawg/astral/internal"
)

// JSONLExporter exports sessions in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlLine struct {
	Session   string `json:"session"`
	Index     int    `json:"index"`
	HumanText string `json:"humanText"`
	AIText    string `json:"aiText"`
	Thinking  bool   `json:"thinking,omitempty"`
}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, msg := range session.Messages {
		line := jsonlLine{
			Session:   session.ID,
			Index:     i,
			HumanText: msg.HumanText,
			AIText:    msg.AIText,
			Thinking:  msg.Thinking,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
