package export

import (
	"bytes"
	"testing"

	"github.com/ropdawg/astral/internal"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	session := internal.CreateTestSession("test1")

	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(session, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var got internal.Session
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Export() produced invalid YAML: %v", err)
	}
	if got.ID != "test1" || got.Title != "Test Conversation" {
		t.Errorf("session header = %q/%q", got.ID, got.Title)
	}
	if len(got.Messages) != 2 || got.Messages[1].HumanText != session.Messages[1].HumanText {
		t.Errorf("messages = %+v", got.Messages)
	}
	if !bytes.Contains(buf.Bytes(), []byte("human_text:")) {
		t.Errorf("output missing human_text key:\n%s", buf.String())
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	if got := (&YAMLExporter{}).Extension(); got != "yaml" {
		t.Errorf("Extension() = %v, want yaml", got)
	}
}
