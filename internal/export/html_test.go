package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ropdawg/astral/internal"
)

func TestHTMLExporter_Export(t *testing.T) {
	session := internal.CreateTestSessionWithMessages("s1", []internal.Message{
		{HumanText: "<script>alert('x')</script>", AIText: "Tom & Jerry"},
	})
	session.Title = `"quoted" title`

	var buf bytes.Buffer
	if err := (&HTMLExporter{}).Export(session, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>&quot;quoted&quot; title</title>",
		"&lt;script&gt;alert(&#039;x&#039;)&lt;/script&gt;",
		"Tom &amp; Jerry",
		`<div id="chat-end"></div>`,
		"</html>",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Export() output missing %q", want)
		}
	}
	if strings.Contains(output, "<script>") {
		t.Error("Export() leaked unescaped markup")
	}
}

func TestHTMLExporter_Extension(t *testing.T) {
	if got := (&HTMLExporter{}).Extension(); got != "html" {
		t.Errorf("Extension() = %v, want html", got)
	}
}
