// 文件路径: internal/panel/client.go
// 模块说明: 面板 HTTP API 客户端。自带重试/限速；面向用户的调用使用 WithoutRetry 副本。
package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 2 << 20

// Options 配置面板客户端。
type Options struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	// Timeout bounds a single HTTP attempt.
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Retry     RetryConfig
	Logger    *slog.Logger
	// HTTPClient overrides the pooled client (tests).
	HTTPClient *http.Client
}

// Client talks to the panel REST API.
type Client struct {
	baseURL string
	apiKey  string
	secret  string
	http    *http.Client
	timeout time.Duration
	retry   RetryConfig
	limiter *rate.Limiter
	lookups *singleflight.Group
	logger  *slog.Logger
}

// New 构建客户端；缺少地址或 Key 时返回的客户端 Configured()==false，所有调用返回 ErrNotConfigured。
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 10
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:  strings.TrimSpace(opts.APIKey),
		secret:  strings.TrimSpace(opts.SecretKey),
		http:    httpClient,
		timeout: timeout,
		retry:   opts.Retry,
		limiter: rate.NewLimiter(limit, burst),
		lookups: &singleflight.Group{},
		logger:  logger,
	}
}

// Configured reports whether base URL and API key are both present.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// WithoutRetry returns a copy that performs exactly one attempt per call.
// The copy shares the connection pool, throttle and lookup de-duplication.
func (c *Client) WithoutRetry() *Client {
	clone := *c
	clone.retry.Enabled = false
	return &clone
}

// FindUsersByTelegramID 按 Telegram ID 查询面板用户；面板返回 404 时视为空列表。
func (c *Client) FindUsersByTelegramID(ctx context.Context, telegramID int64) ([]User, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	key := strconv.FormatInt(telegramID, 10)
	if !c.retry.Enabled {
		key = "once:" + key
	}
	// 共享调用不继承某一个调用方的取消或截止时间，每个调用方只按自己的 ctx 等待结果。
	ch := c.lookups.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sharedBudget())
		defer cancel()
		body, err := c.call(shared, "users_by_telegram_id", "/api/users/by-telegram-id/"+url.PathEscape(strconv.FormatInt(telegramID, 10)))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return []User{}, nil
			}
			return nil, err
		}
		return parseUsers(body)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("panel: users_by_telegram_id: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]User), nil
	}
}

// sharedBudget bounds a de-duplicated call that no single caller owns: one
// attempt, plus every retry and its longest backoff when retries are enabled.
func (c *Client) sharedBudget() time.Duration {
	if !c.retry.Enabled {
		return c.timeout
	}
	cfg := normalizeRetryConfig(c.retry)
	return time.Duration(cfg.MaxRetries+1)*c.timeout + time.Duration(cfg.MaxRetries)*cfg.MaxInterval
}

// AccessibleNodes 返回某个内部 squad 可访问的节点列表。
func (c *Client) AccessibleNodes(ctx context.Context, squadUUID string) ([]Node, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	squadUUID = strings.TrimSpace(squadUUID)
	if squadUUID == "" {
		return nil, ErrNotFound
	}
	body, err := c.call(ctx, "accessible_nodes", "/api/internal-squads/"+url.PathEscape(squadUUID)+"/accessible-nodes")
	if err != nil {
		return nil, err
	}
	return parseNodes(body)
}

// Health pings the panel's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	_, err := c.call(ctx, "health", "/api/system/health")
	return err
}

// ApplySecret adds the reverse-proxy secret cookie, when one is configured.
// "name:value" sets cookie name=value; a bare value is used as both.
func (c *Client) ApplySecret(h http.Header) {
	if c == nil || c.secret == "" {
		return
	}
	name, value, ok := strings.Cut(c.secret, ":")
	if !ok {
		value = c.secret
	}
	cookie := &http.Cookie{Name: name, Value: value}
	if existing := h.Get("Cookie"); existing != "" {
		h.Set("Cookie", existing+"; "+cookie.String())
		return
	}
	h.Set("Cookie", cookie.String())
}

func (c *Client) call(ctx context.Context, op, path string) ([]byte, error) {
	start := time.Now()
	var body []byte
	err := doWithRetry(ctx, c.retry, func(ctx context.Context) error {
		var err error
		body, err = c.get(ctx, op, path)
		return err
	})
	requestsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Debug("panel call failed", "op", op, "error", err, "elapsed", time.Since(start))
	}
	return body, err
}

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("panel: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	c.ApplySecret(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("panel: %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("panel: %s: read body: %w", op, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	return body, nil
}

// parseUsers 兼容 response 为数组或单个对象两种形态。
func parseUsers(body []byte) ([]User, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedResponse
	}
	payload := gjson.GetBytes(body, "response")
	if !payload.Exists() {
		return nil, ErrMalformedResponse
	}
	var items []gjson.Result
	switch {
	case payload.IsArray():
		items = payload.Array()
	case payload.IsObject():
		items = []gjson.Result{payload}
	default:
		return nil, ErrMalformedResponse
	}

	users := make([]User, 0, len(items))
	for _, item := range items {
		user := User{
			UUID:              item.Get("uuid").String(),
			ShortUUID:         item.Get("shortUuid").String(),
			Username:          item.Get("username").String(),
			Status:            strings.ToUpper(item.Get("status").String()),
			TrafficLimitBytes: item.Get("trafficLimitBytes").Int(),
			SubscriptionURL:   strings.TrimSpace(item.Get("subscriptionUrl").String()),
		}
		// 新版本把流量放在 userTraffic 下。
		if used := item.Get("userTraffic.usedTrafficBytes"); used.Exists() {
			user.UsedTrafficBytes = used.Int()
		} else {
			user.UsedTrafficBytes = item.Get("usedTrafficBytes").Int()
		}
		if raw := item.Get("expireAt").String(); raw != "" {
			expireAt, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: expireAt %q", ErrMalformedResponse, raw)
			}
			expireAt = expireAt.UTC()
			user.ExpireAt = &expireAt
		}
		if tg := item.Get("telegramId"); tg.Exists() && tg.Type != gjson.Null {
			id := tg.Int()
			user.TelegramID = &id
		}
		users = append(users, user)
	}
	return users, nil
}

func parseNodes(body []byte) ([]Node, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedResponse
	}
	list := gjson.GetBytes(body, "response.accessibleNodes")
	if !list.Exists() {
		return nil, ErrMalformedResponse
	}
	nodes := make([]Node, 0, len(list.Array()))
	for _, item := range list.Array() {
		name := strings.TrimSpace(item.Get("nodeName").String())
		if name == "" {
			name = strings.TrimSpace(item.Get("configProfileName").String())
		}
		nodes = append(nodes, Node{
			UUID:        item.Get("uuid").String(),
			Name:        name,
			CountryCode: strings.TrimSpace(item.Get("countryCode").String()),
		})
	}
	return nodes, nil
}
