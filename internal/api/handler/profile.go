// 文件路径: internal/api/handler/profile.go
// 模块说明: /profile 返回订阅快照；/profile/subscription 原样转发面板订阅内容。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/xboard-mobile/internal/api/requestctx"
	"github.com/creamcroissant/xboard-mobile/internal/service"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// ProfileHandler exposes the caller's subscription.
type ProfileHandler struct {
	Resolver service.SubscriptionResolver
	i18n     *i18n.Manager
	logger   *slog.Logger
}

func NewProfileHandler(resolver service.SubscriptionResolver, i18nMgr *i18n.Manager, logger *slog.Logger) *ProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileHandler{Resolver: resolver, i18n: i18nMgr, logger: logger}
}

// Profile handles GET /profile.
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := requestctx.UserFromContext(ctx)
	if user == nil {
		RespondErrorI18nAction(ctx, w, http.StatusUnauthorized, "profile.get", "error.unauthorized", h.i18n)
		return
	}
	snapshot, err := h.Resolver.Resolve(ctx, user)
	if err != nil {
		h.logger.Error("resolve profile failed", "user_id", user.ID, "error", err)
		RespondErrorI18nAction(ctx, w, http.StatusInternalServerError, "profile.get", "error.profile_failed", h.i18n)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// Subscription handles GET /profile/subscription.
func (h *ProfileHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := requestctx.UserFromContext(ctx)
	if user == nil {
		RespondErrorI18nAction(ctx, w, http.StatusUnauthorized, "profile.subscription", "error.unauthorized", h.i18n)
		return
	}
	raw, err := h.Resolver.ResolveRaw(ctx, user)
	if err != nil {
		respondSubscriptionError(w, r, "profile.subscription", err, h.i18n, h.logger)
		return
	}
	respondText(w, http.StatusOK, raw.Body)
}

// respondSubscriptionError maps resolver/fetch failures shared by the passthrough
// and vpn-config endpoints.
func respondSubscriptionError(w http.ResponseWriter, r *http.Request, action string, err error, i18nMgr *i18n.Manager, logger *slog.Logger) {
	ctx := r.Context()
	var upstream *service.UpstreamError
	var decodeErr *service.DecodeError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrMisconfigured):
		RespondErrorI18nAction(ctx, w, http.StatusNotFound, action, "error.subscription_not_found", i18nMgr)
	case errors.As(err, &decodeErr):
		RespondErrorI18nAction(ctx, w, http.StatusUnprocessableEntity, action, "error.no_proxy_links", i18nMgr, decodeErr.BodyLength)
	case errors.As(err, &upstream):
		if upstream.StatusCode > 0 {
			RespondErrorI18nAction(ctx, w, http.StatusBadGateway, action, "error.upstream_status", i18nMgr, upstream.StatusCode)
			return
		}
		RespondErrorI18nAction(ctx, w, http.StatusBadGateway, action, "error.upstream_failed", i18nMgr)
	case errors.Is(err, service.ErrUnauthorized):
		RespondErrorI18nAction(ctx, w, http.StatusUnauthorized, action, "error.unauthorized", i18nMgr)
	default:
		logger.Error("subscription request failed", "action", action, "error", err)
		RespondErrorI18nAction(ctx, w, http.StatusInternalServerError, action, "error.internal", i18nMgr)
	}
}
