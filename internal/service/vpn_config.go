// 文件路径: internal/service/vpn_config.go
// 模块说明: 服务端拉取订阅内容并解码为代理链接列表，客户端无需处理 base64。
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
	"github.com/creamcroissant/xboard-mobile/internal/subscription"
)

// VPNConfig is the body of the vpn-config endpoint.
type VPNConfig struct {
	ProxyLinks      []string `json:"proxy_links"`
	Total           int      `json:"total"`
	SubscriptionURL string   `json:"subscription_url"`
}

// VPNConfigService resolves, fetches and decodes the caller's subscription.
type VPNConfigService interface {
	Get(ctx context.Context, user *repository.User) (*VPNConfig, error)
}

type vpnConfigService struct {
	resolver  SubscriptionResolver
	fetcher   ContentFetcher
	panel     PanelClient
	userAgent string
	logger    *slog.Logger
}

// NewVPNConfigService wires the service. panelClient is only used for the secret cookie.
func NewVPNConfigService(resolver SubscriptionResolver, fetcher ContentFetcher, panelClient PanelClient, userAgent string, logger *slog.Logger) VPNConfigService {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "v2rayN/6.0"
	}
	return &vpnConfigService{
		resolver:  resolver,
		fetcher:   fetcher,
		panel:     panelClient,
		userAgent: userAgent,
		logger:    logger,
	}
}

func (s *vpnConfigService) Get(ctx context.Context, user *repository.User) (*VPNConfig, error) {
	sourceURL, err := s.resolver.SubscriptionURL(ctx, user)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("User-Agent", s.userAgent)
	headers.Set("Accept", "*/*")
	if s.panel != nil {
		s.panel.ApplySecret(headers)
	}
	body, err := s.fetcher.Fetch(ctx, sourceURL, headers)
	if err != nil {
		var fetchErr *subscription.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Kind == subscription.FailureEmptyBody {
			s.logger.Warn("subscription body is empty", "user_id", user.ID, "url", sourceURL)
			return nil, &DecodeError{BodyLength: 0}
		}
		s.logger.Error("failed to fetch subscription content", "user_id", user.ID, "url", sourceURL, "error", err)
		return nil, upstreamFromFetch(err)
	}

	links := subscription.Decode(string(body))
	if len(links) == 0 {
		s.logger.Warn("no proxy links parsed from subscription", "user_id", user.ID, "url", sourceURL, "body_len", len(body))
		return nil, &DecodeError{BodyLength: len(body)}
	}
	return &VPNConfig{
		ProxyLinks:      links,
		Total:           len(links),
		SubscriptionURL: sourceURL,
	}, nil
}
