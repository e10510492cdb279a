// 文件路径: internal/api/middleware/auth.go
// 模块说明: Bearer 令牌认证。UserGuard 强制登录，OptionalUser 允许匿名访问。
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/creamcroissant/xboard-mobile/internal/api/requestctx"
	"github.com/creamcroissant/xboard-mobile/internal/service"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// UserGuard ensures requests are authenticated end users.
func UserGuard(auth service.AuthService, i18nMgr *i18n.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				writeUnauthorized(w, r, i18nMgr)
				return
			}
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" {
				writeUnauthorized(w, r, i18nMgr)
				return
			}
			user, err := auth.Verify(r.Context(), token)
			if err != nil {
				writeUnauthorized(w, r, i18nMgr)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithUser(r.Context(), user)))
		})
	}
}

// OptionalUser attaches the user when a valid bearer token is present. Missing or
// invalid tokens fall through as anonymous requests.
func OptionalUser(auth service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if auth == nil || token == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := auth.Verify(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithUser(r.Context(), user)))
		})
	}
}

func extractBearer(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return trimmed
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, i18nMgr *i18n.Manager) {
	message := "error.unauthorized"
	if i18nMgr != nil {
		message = i18nMgr.Translate(requestctx.GetLanguage(r.Context()), message)
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="xmobile"`)
	writeJSONError(w, http.StatusUnauthorized, message)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
