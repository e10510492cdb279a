package handler

import (
	"log/slog"
	"net/http"

	"github.com/creamcroissant/xboard-mobile/internal/api/requestctx"
	"github.com/creamcroissant/xboard-mobile/internal/service"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// TariffsHandler lists purchasable tariffs.
type TariffsHandler struct {
	Tariffs service.TariffService
	i18n    *i18n.Manager
	logger  *slog.Logger
}

func NewTariffsHandler(tariffs service.TariffService, i18nMgr *i18n.Manager, logger *slog.Logger) *TariffsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TariffsHandler{Tariffs: tariffs, i18n: i18nMgr, logger: logger}
}

// List handles GET /tariffs. Any failure is reported as 500.
func (h *TariffsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := h.Tariffs.List(ctx, requestctx.UserFromContext(ctx))
	if err != nil {
		h.logger.Error("list tariffs failed", "error", err)
		RespondErrorI18nAction(ctx, w, http.StatusInternalServerError, "tariffs.list", "error.tariffs_failed", h.i18n)
		return
	}
	respondJSON(w, http.StatusOK, list)
}
