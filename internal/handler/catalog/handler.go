package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/bikebot/internal/model/catalog"
	"github.com/zhouzirui/bikebot/pkg/utils"
)

// Handler catalog服务的HTTP处理器
type Handler struct {
	catalog catalog.Catalog
}

// New 创建catalog处理器
func New(cat catalog.Catalog) *Handler {
	return &Handler{catalog: cat}
}

// RegisterRoutes 注册catalog相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/catalog", h.handleGetCatalog)
}

// handleGetCatalog 返回品牌、欢迎语与快捷回复
func (h *Handler) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog)
}
