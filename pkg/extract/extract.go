package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

// Text extracts the plain text of an uploaded file. Plain text and
// markdown pass through as-is; HTML is stripped down to its visible body
// text. PDF extraction is handled by an external parser before upload and
// is not accepted here.
func Text(filename string, data []byte) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "txt", "md":
		return string(data), nil
	case "html", "htm":
		return htmlText(data)
	default:
		return "", fmt.Errorf("%w: unsupported file type %q, upload TXT, Markdown or HTML", models.ErrInvalidArgument, filepath.Ext(filename))
	}
}

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	// Drop non-content elements before reading text
	doc.Find("script, style, nav, header, footer, noscript").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return strings.Join(strings.Fields(doc.Text()), " "), nil
	}
	return strings.Join(strings.Fields(body.Text()), " "), nil
}
