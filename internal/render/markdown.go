// ABOUTME: Rendering helpers for transcript content
// ABOUTME: Stable JSON-to-markdown rendering plus markdown-to-HTML export via goldmark

package render

import (
	"bytes"
	"encoding/json"

	"github.com/yuin/goldmark"
)

// ErrorParsingResponse is the literal shown when a structured payload cannot
// be stringified.
const ErrorParsingResponse = "Error parsing response"

// JSONMarkdown renders a structured (non-text) content value as a fenced json
// code block so it can be appended to a textual transcript. The rendering is
// stable: the same value always produces the same block.
func JSONMarkdown(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return ErrorParsingResponse
	}
	return "\n```json\n" + buf.String() + "\n```\n"
}

// Stringify renders arbitrary content for final authoritative overwrite:
// textual values pass through, structured values become a json block, and
// values that cannot be stringified fall back to a fixed literal.
func Stringify(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if !json.Valid(raw) {
		return ErrorParsingResponse
	}
	return JSONMarkdown(raw)
}

// HTML converts markdown transcript content to HTML. Used by the export path.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
