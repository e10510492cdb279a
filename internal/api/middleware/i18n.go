package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/creamcroissant/xboard-mobile/internal/api/requestctx"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// I18n middleware detects the caller's preferred language and stores it in the context.
// Order: ?lang=, X-I18N-Lang header, Accept-Language, manager default.
func I18n(manager *i18n.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := strings.TrimSpace(r.URL.Query().Get("lang"))
			if lang == "" {
				lang = strings.TrimSpace(r.Header.Get("X-I18N-Lang"))
			}
			if lang == "" {
				tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
				if err == nil && len(tags) > 0 {
					lang = tags[0].String()
				}
			}
			if manager != nil {
				lang = manager.Resolve(lang)
			}
			ctx := requestctx.WithLanguage(r.Context(), lang)
			w.Header().Set("Content-Language", requestctx.GetLanguage(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
