package notfound

import (
	"net/http"
	"strings"

	"github.com/zhouzirui/bikebot/internal/logging"
	"github.com/zhouzirui/bikebot/internal/web"
	"github.com/zhouzirui/bikebot/pkg/utils"
)

// Handler renders the fallback page for unmatched routes.
type Handler struct {
	brand string
}

// New creates a not-found handler.
func New(brand string) *Handler {
	return &Handler{brand: brand}
}

// ServeHTTP logs the attempted path and renders the not-found view. API
// clients get a JSON error instead.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.Component("router")
	logger.Warn().
		Str("path", r.URL.Path).
		Msg("404 Error: User attempted to access non-existent route")

	if strings.HasPrefix(r.URL.Path, "/api/") {
		utils.RespondError(w, http.StatusNotFound, "route not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := web.RenderNotFound(w, web.NotFoundPage{Brand: h.brand, Path: r.URL.Path}); err != nil {
		logger.Error().Err(err).Msg("failed to render not-found page")
	}
}
