package adminhttp

import (
	"bytes"
	"embed"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed docs/*.md
var docsFS embed.FS

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
	),
)

// handleDocs renders the embedded admin-surface reference doc as HTML,
// mirroring the teacher's markdownToHTML template helper.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	src, err := docsFS.ReadFile("docs/reference.md")
	if err != nil {
		http.Error(w, "docs not available", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := markdownRenderer.Convert(src, &buf); err != nil {
		http.Error(w, "failed to render docs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!DOCTYPE html><html><body>"))
	_, _ = buf.WriteTo(w)
	_, _ = w.Write([]byte("</body></html>"))
}
