// 文件路径: internal/service/auth.go
// 模块说明: Bearer 令牌校验，以及仅在开发模式下可用的测试令牌签发。
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/creamcroissant/xboard-mobile/internal/auth/token"
	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

// TokenTypeAccess is the only token type accepted by mobile endpoints.
const TokenTypeAccess = "access"

// DefaultDevTokenTTL is the lifetime of development tokens.
const DefaultDevTokenTTL = 30 * 24 * time.Hour

// AuthService verifies bearer tokens and loads the caller.
type AuthService interface {
	Verify(ctx context.Context, rawToken string) (*repository.User, error)
}

type authService struct {
	users    repository.UserRepository
	tokenMgr *token.Manager
}

// NewAuthService wires repository + token manager.
func NewAuthService(users repository.UserRepository, tokenMgr *token.Manager) AuthService {
	return &authService{users: users, tokenMgr: tokenMgr}
}

func (s *authService) Verify(ctx context.Context, rawToken string) (*repository.User, error) {
	if s == nil || s.users == nil || s.tokenMgr == nil {
		return nil, fmt.Errorf("auth service not fully configured / 认证服务未完整配置")
	}
	tokenStr := strings.TrimSpace(rawToken)
	if tokenStr == "" {
		return nil, ErrUnauthorized
	}
	claims, err := s.tokenMgr.Parse(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if claims.TokenType != "" && claims.TokenType != TokenTypeAccess {
		return nil, ErrUnauthorized
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// DevToken is the body returned by the development auth endpoint.
type DevToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Warning     string    `json:"warning"`
}

// DevAuthOptions configures DevAuthService.
type DevAuthOptions struct {
	Enabled    bool
	TelegramID int64
	TTL        time.Duration
	Logger     *slog.Logger
}

// DevAuthService issues long-lived tokens for a fixed development user. No password
// or OTP check is performed, so it must stay disabled in production.
type DevAuthService interface {
	Enabled() bool
	TelegramID() int64
	Issue(ctx context.Context) (*DevToken, error)
}

type devAuthService struct {
	users    repository.UserRepository
	tokenMgr *token.Manager
	opts     DevAuthOptions
	logger   *slog.Logger
}

// NewDevAuthService wires the development token issuer.
func NewDevAuthService(users repository.UserRepository, tokenMgr *token.Manager, opts DevAuthOptions) DevAuthService {
	if opts.TTL <= 0 {
		opts.TTL = DefaultDevTokenTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &devAuthService{users: users, tokenMgr: tokenMgr, opts: opts, logger: logger}
}

func (s *devAuthService) Enabled() bool {
	return s != nil && s.opts.Enabled
}

func (s *devAuthService) TelegramID() int64 {
	return s.opts.TelegramID
}

func (s *devAuthService) Issue(ctx context.Context) (*DevToken, error) {
	if !s.Enabled() {
		return nil, ErrDevModeDisabled
	}
	if s.opts.TelegramID == 0 {
		return nil, ErrDevUserUnset
	}
	user, err := s.users.FindByTelegramID(ctx, s.opts.TelegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	signed, claims, err := s.tokenMgr.Issue(token.IssueInput{
		Subject:   strconv.FormatInt(user.ID, 10),
		TokenType: TokenTypeAccess,
		TTL:       s.opts.TTL,
		Attributes: map[string]any{
			"telegram_id": s.opts.TelegramID,
			"dev":         true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("issue dev token: %w", err)
	}
	expiresAt := claims.ExpiresAt.Time.UTC()
	s.logger.Warn("dev auth token issued", "user_id", user.ID, "telegram_id", s.opts.TelegramID, "expires", expiresAt.Format(time.RFC3339))
	return &DevToken{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		UserID:      user.ID,
		Username:    user.DisplayName(),
	}, nil
}
