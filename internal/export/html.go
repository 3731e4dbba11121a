package export

import (
	"fmt"
	"io"

	"github.com/ropdawg/astral/internal"
)

// HTMLExporter exports sessions as a standalone page of chat markup
type HTMLExporter struct{}

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<link rel="stylesheet" href="styles/index.css">
<link rel="stylesheet" href="styles/response-style.css">
</head>
<body>
<main id="chat-container">
`

const htmlFoot = `</main>
</body>
</html>
`

// Export exports a session to HTML format
func (e *HTMLExporter) Export(session *internal.Session, w io.Writer) error {
	if _, err := fmt.Fprintf(w, htmlHead, internal.EscapeHTML(session.DisplayTitle())); err != nil {
		return err
	}
	if _, err := io.WriteString(w, internal.RenderHTML(session.Messages)); err != nil {
		return err
	}
	_, err := io.WriteString(w, htmlFoot)
	return err
}

// Extension returns the file extension for this format
func (e *HTMLExporter) Extension() string {
	return "html"
}
