package handler

import (
	"log/slog"
	"net/http"

	"github.com/creamcroissant/xboard-mobile/internal/api/requestctx"
	"github.com/creamcroissant/xboard-mobile/internal/service"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// ServersHandler serves the categorized server catalog.
type ServersHandler struct {
	Catalog service.CatalogService
	i18n    *i18n.Manager
	logger  *slog.Logger
}

func NewServersHandler(catalogService service.CatalogService, i18nMgr *i18n.Manager, logger *slog.Logger) *ServersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServersHandler{Catalog: catalogService, i18n: i18nMgr, logger: logger}
}

// List handles GET /servers. Authentication is optional; it only narrows the
// squads to the caller's promo group.
func (h *ServersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := requestctx.UserFromContext(ctx)
	result, err := h.Catalog.List(ctx, user, requestctx.UserLanguage(ctx))
	if err != nil {
		h.logger.Error("list servers failed", "error", err)
		RespondErrorI18nAction(ctx, w, http.StatusInternalServerError, "servers.list", "error.servers_failed", h.i18n)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
