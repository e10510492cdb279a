package handler

import (
	"log/slog"
	"net/http"

	"github.com/creamcroissant/xboard-mobile/internal/api/requestctx"
	"github.com/creamcroissant/xboard-mobile/internal/service"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// VPNConfigHandler returns the decoded proxy links of the caller's subscription.
type VPNConfigHandler struct {
	VPNConfig service.VPNConfigService
	i18n      *i18n.Manager
	logger    *slog.Logger
}

func NewVPNConfigHandler(vpnConfig service.VPNConfigService, i18nMgr *i18n.Manager, logger *slog.Logger) *VPNConfigHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VPNConfigHandler{VPNConfig: vpnConfig, i18n: i18nMgr, logger: logger}
}

// Get handles GET /vpn-config.
func (h *VPNConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := requestctx.UserFromContext(ctx)
	if user == nil {
		RespondErrorI18nAction(ctx, w, http.StatusUnauthorized, "vpn_config.get", "error.unauthorized", h.i18n)
		return
	}
	cfg, err := h.VPNConfig.Get(ctx, user)
	if err != nil {
		respondSubscriptionError(w, r, "vpn_config.get", err, h.i18n, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}
