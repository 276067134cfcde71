package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	catalogHandler "github.com/zhouzirui/bikebot/internal/handler/catalog"
	"github.com/zhouzirui/bikebot/internal/handler/chat"
	"github.com/zhouzirui/bikebot/internal/handler/notfound"
	"github.com/zhouzirui/bikebot/internal/handler/page"
	"github.com/zhouzirui/bikebot/internal/handler/stream"
	"github.com/zhouzirui/bikebot/internal/handler/ws"
	"github.com/zhouzirui/bikebot/internal/logging"
	middlewarePkg "github.com/zhouzirui/bikebot/internal/middleware"
	chatService "github.com/zhouzirui/bikebot/internal/service/chat"
	"github.com/zhouzirui/bikebot/internal/web"
	"github.com/zhouzirui/bikebot/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logging.Component("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	cat := chatSvc.Catalog()
	notFound := notfound.New(cat.Brand)
	r.NotFound(notFound.ServeHTTP)

	r.Method(http.MethodGet, "/", page.New(chatSvc))
	r.Handle("/static/*", web.Static())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Len(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		catalogHandler.New(cat).RegisterRoutes(api)
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc).RegisterRoutes(api)
		ws.New(chatSvc).RegisterRoutes(api)
	})

	return r
}
