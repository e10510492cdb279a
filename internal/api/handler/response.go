package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/xboard-mobile/internal/api/requestctx"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// Helper to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

// respondText writes a verbatim body as text/plain.
func respondText(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Warn("failed to write text response", "error", err)
	}
}

// RespondErrorI18nAction writes {"error": <translated key>, "action": action}.
func RespondErrorI18nAction(ctx context.Context, w http.ResponseWriter, status int, action string, key string, i18nMgr *i18n.Manager, args ...interface{}) {
	if key == "" {
		key = action
	}
	lang := requestctx.UserLanguage(ctx)
	var msg string
	if i18nMgr != nil {
		msg = i18nMgr.Translate(lang, key, args...)
	} else {
		msg = key // Fallback if manager is missing (e.g. in tests)
	}
	resp := map[string]any{
		"error": msg,
	}
	if action != "" {
		resp["action"] = action
	}
	respondJSON(w, status, resp)
}
