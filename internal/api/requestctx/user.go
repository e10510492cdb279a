// 文件路径: internal/api/requestctx/user.go
// 模块说明: 在请求 context 中传递已认证用户和语言。
package requestctx

import (
	"context"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

// DefaultLanguage is returned when no language was negotiated.
const DefaultLanguage = "ru"

type contextKey string

const userContextKey contextKey = "xmobile-user"

// I18nKey 用于在 context 中存储语言标识的 key 类型。
type I18nKey struct{}

// WithLanguage 将语言标识附加到 context 中供下游使用。
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, I18nKey{}, lang)
}

// GetLanguage 从 context 中获取语言标识，若未设置则返回默认值 "ru"。
func GetLanguage(ctx context.Context) string {
	if ctx == nil {
		return DefaultLanguage
	}
	if lang, ok := ctx.Value(I18nKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLanguage
}

// WithUser attaches the authenticated user for downstream handlers.
func WithUser(ctx context.Context, user *repository.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *repository.User {
	if ctx == nil {
		return nil
	}
	user, _ := ctx.Value(userContextKey).(*repository.User)
	return user
}

// UserLanguage prefers the stored language of the authenticated user over the
// negotiated request language.
func UserLanguage(ctx context.Context) string {
	if user := UserFromContext(ctx); user != nil && user.Language != "" {
		return user.Language
	}
	return GetLanguage(ctx)
}
