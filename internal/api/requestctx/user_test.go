package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

func TestLanguageAndUser(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "ru", GetLanguage(ctx))
	assert.Nil(t, UserFromContext(ctx))
	assert.Equal(t, "ru", UserLanguage(ctx))

	ctx = WithLanguage(ctx, "en")
	assert.Equal(t, "en", GetLanguage(ctx))
	assert.Equal(t, "en", UserLanguage(ctx))

	ctx = WithUser(ctx, &repository.User{ID: 1})
	assert.Equal(t, "en", UserLanguage(ctx))

	ctx = WithUser(ctx, &repository.User{ID: 1, Language: "ru"})
	assert.EqualValues(t, 1, UserFromContext(ctx).ID)
	assert.Equal(t, "ru", UserLanguage(ctx))
}
