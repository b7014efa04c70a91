// ABOUTME: Unauthenticated demo endpoints echoing a name as HTML
// ABOUTME: Markdown is rendered with goldmark; the name is escaped so it stays literal text

package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
)

const defaultHelloName = "World!"

// handleHello handles GET /hello?name=...
func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultHelloName
	}
	s.writeHello(w, r, name)
}

// handleHello2 handles GET /hello2/{name}.
func (s *Server) handleHello2(w http.ResponseWriter, r *http.Request) {
	s.writeHello(w, r, r.PathValue("name"))
}

func (s *Server) writeHello(w http.ResponseWriter, r *http.Request, name string) {
	html, err := renderHello(name)
	if err != nil {
		s.fail(w, r, fmt.Errorf("rendering hello: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

// renderHello renders "Hello **name**!" to HTML.
func renderHello(name string) ([]byte, error) {
	var buf bytes.Buffer
	md := "Hello **" + escapeMarkdown(name) + "**!"
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// escapeMarkdown backslash-escapes ASCII punctuation so user input cannot
// open emphasis, links or raw HTML.
func escapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x80 && strings.ContainsRune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
