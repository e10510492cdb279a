package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/xboard-mobile/internal/api/requestctx"
	"github.com/creamcroissant/xboard-mobile/internal/service"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// DevAuthHandler issues development tokens. It answers 404 while dev mode is off.
type DevAuthHandler struct {
	DevAuth service.DevAuthService
	i18n    *i18n.Manager
	logger  *slog.Logger
}

func NewDevAuthHandler(devAuth service.DevAuthService, i18nMgr *i18n.Manager, logger *slog.Logger) *DevAuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevAuthHandler{DevAuth: devAuth, i18n: i18nMgr, logger: logger}
}

// Issue handles POST /dev/auth.
func (h *DevAuthHandler) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.DevAuth == nil || !h.DevAuth.Enabled() {
		RespondErrorI18nAction(ctx, w, http.StatusNotFound, "dev.auth", "error.not_found", h.i18n)
		return
	}
	tok, err := h.DevAuth.Issue(ctx)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDevModeDisabled):
			RespondErrorI18nAction(ctx, w, http.StatusNotFound, "dev.auth", "error.not_found", h.i18n)
		case errors.Is(err, service.ErrDevUserUnset):
			RespondErrorI18nAction(ctx, w, http.StatusInternalServerError, "dev.auth", "error.dev_telegram_id_unset", h.i18n)
		case errors.Is(err, service.ErrNotFound):
			RespondErrorI18nAction(ctx, w, http.StatusNotFound, "dev.auth", "error.dev_user_not_found", h.i18n, h.DevAuth.TelegramID())
		default:
			h.logger.Error("dev auth failed", "error", err)
			RespondErrorI18nAction(ctx, w, http.StatusInternalServerError, "dev.auth", "error.internal", h.i18n)
		}
		return
	}
	tok.Warning = "dev.warning"
	if h.i18n != nil {
		tok.Warning = h.i18n.Translate(requestctx.GetLanguage(ctx), "dev.warning")
	}
	respondJSON(w, http.StatusOK, tok)
}
