// Package web renders the chat and not-found pages and serves their static assets.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/zhouzirui/bikebot/internal/model/catalog"
	"github.com/zhouzirui/bikebot/internal/model/chat"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ChatPage is the data behind the chat view.
type ChatPage struct {
	Brand        string
	QuickReplies []string
	Session      chat.Snapshot
}

// NotFoundPage is the data behind the not-found view.
type NotFoundPage struct {
	Brand string
	Path  string
}

// NewChatPage builds the chat view data for a fresh session.
func NewChatPage(cat catalog.Catalog, session chat.Snapshot) ChatPage {
	return ChatPage{
		Brand:        cat.Brand,
		QuickReplies: cat.QuickReplies,
		Session:      session,
	}
}

// RenderChat writes the chat view.
func RenderChat(w io.Writer, page ChatPage) error {
	return pages.ExecuteTemplate(w, "chat.html", page)
}

// RenderNotFound writes the not-found view.
func RenderNotFound(w io.Writer, page NotFoundPage) error {
	return pages.ExecuteTemplate(w, "notfound.html", page)
}

// Static serves the embedded assets under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
