// 文件路径: internal/auth/token/manager.go
// 模块说明: HS256 JWT 签发与校验。移动端与用户中心共用同一个密钥，令牌可以互通。
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken 表示签名、签发方、受众或时间声明不合法。
	ErrInvalidToken = errors.New("invalid token / 无效的 token")
	// ErrExpiredToken 表示令牌超出允许的过期宽限。
	ErrExpiredToken = errors.New("token expired / token 已过期")
)

// Options 配置 Token 管理器。Issuer 和 Audience 为空时不签发也不校验对应声明。
type Options struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	TTL        time.Duration
	Leeway     time.Duration
}

// Claims 是移动端令牌的声明。telegram_id 等附加信息放在 attr 里。
type Claims struct {
	jwt.RegisteredClaims
	TokenType  string         `json:"type,omitempty"`
	Attributes map[string]any `json:"attr,omitempty"`
}

// Int64Attribute reads a numeric attribute; JSON numbers decode as float64.
func (c *Claims) Int64Attribute(name string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	switch v := c.Attributes[name].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// IssueInput 描述一次签发。TTL 为 0 时使用管理器默认值。
type IssueInput struct {
	Subject    string
	TokenType  string
	TTL        time.Duration
	Attributes map[string]any
}

// Manager 持有密钥和校验规则，可并发使用。
type Manager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	parser   *jwt.Parser
}

// NewManager 校验参数并预先构造解析器。
func NewManager(opts Options) (*Manager, error) {
	if len(opts.SigningKey) == 0 {
		return nil, fmt.Errorf("signing key is required / 签名密钥不能为空")
	}
	m := &Manager{
		secret:   append([]byte(nil), opts.SigningKey...),
		issuer:   strings.TrimSpace(opts.Issuer),
		audience: strings.TrimSpace(opts.Audience),
		ttl:      opts.TTL,
	}
	if m.ttl <= 0 {
		m.ttl = time.Hour
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if opts.Leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(opts.Leeway))
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(m.audience))
	}
	m.parser = jwt.NewParser(parserOpts...)
	return m, nil
}

// MustManager 在参数非法时直接 panic，用于测试和启动期默认配置。
func MustManager(opts Options) *Manager {
	m, err := NewManager(opts)
	if err != nil {
		panic(err)
	}
	return m
}

// Issue 签发一个 HS256 令牌，返回签名串和写入的声明。
func (m *Manager) Issue(input IssueInput) (string, *Claims, error) {
	if m == nil {
		return "", nil, fmt.Errorf("token manager not initialized / token 管理器未初始化")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return "", nil, fmt.Errorf("token subject is required / token subject 不能为空")
	}
	ttl := input.TTL
	if ttl <= 0 {
		ttl = m.ttl
	}

	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   input.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: input.TokenType,
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}
	if len(input.Attributes) > 0 {
		claims.Attributes = make(map[string]any, len(input.Attributes))
		for k, v := range input.Attributes {
			claims.Attributes[k] = v
		}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse 校验签名和时间、签发方、受众声明。过期返回 ErrExpiredToken，其余失败都包装 ErrInvalidToken。
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	if m == nil {
		return nil, fmt.Errorf("token manager not initialized / token 管理器未初始化")
	}
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
