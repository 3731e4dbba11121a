package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ropdawg/astral/internal"
	"github.com/ropdawg/astral/testutil"
)

func TestJSONExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		session *internal.Session
		wantErr bool
	}{
		{
			name:    "basic session",
			session: internal.CreateTestSession("test1"),
			wantErr: false,
		},
		{
			name:    "empty session",
			session: internal.CreateTestSessionWithMessages("test2", []internal.Message{}),
			wantErr: false,
		},
		{
			name:    "nil messages",
			session: &internal.Session{ID: "test3", Title: "Nil"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := &JSONExporter{}
			var buf bytes.Buffer

			err := exporter.Export(tt.session, &buf)
			if (err != nil) != tt.wantErr {
				t.Errorf("Export() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			var raw map[string]json.RawMessage
			if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
				t.Fatalf("Export() produced invalid JSON: %v", err)
			}
			for _, key := range []string{"id", "title", "messages"} {
				if _, ok := raw[key]; !ok {
					t.Errorf("Export() missing key %q", key)
				}
			}
			if string(raw["messages"]) == "null" {
				t.Error("Export() wrote null messages, want []")
			}
		})
	}
}

func TestJSONExporter_MessageKeys(t *testing.T) {
	var buf bytes.Buffer
	session := internal.CreateTestSessionWithMessages("s", []internal.Message{
		{HumanText: "hi", AIText: "hello", Thinking: false},
	})
	if err := (&JSONExporter{}).Export(session, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var got struct {
		Messages []map[string]any `json:"messages"`
	}
	testutil.JSONUnmarshal(t, buf.Bytes(), &got)
	msg := got.Messages[0]
	if msg["humanText"] != "hi" || msg["aiText"] != "hello" || msg["thinking"] != false {
		t.Errorf("message = %v", msg)
	}
}

func TestJSONExporter_Extension(t *testing.T) {
	if got := (&JSONExporter{}).Extension(); got != "json" {
		t.Errorf("Extension() = %v, want json", got)
	}
}
