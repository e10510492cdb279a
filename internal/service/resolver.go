// 文件路径: internal/service/resolver.go
// 模块说明: 订阅解析。两级来源：本地库优先，缺失时回退到面板；回退失败只记录告警，不向调用方报错。
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creamcroissant/xboard-mobile/internal/panel"
	"github.com/creamcroissant/xboard-mobile/internal/repository"
	"github.com/creamcroissant/xboard-mobile/internal/subscription"
)

// Snapshot status values that do not come from a local row.
const (
	StatusNoSubscription = "no_subscription"
	StatusActive         = "active"
	StatusExpired        = "expired"
)

// SubscriptionPath is the mobile route serving the raw subscription body.
const SubscriptionPath = "/mobile/v1/profile/subscription"

const bytesPerGB = 1024 * 1024 * 1024

// hwidNamespace seeds the deterministic device identifier sent to the panel.
var hwidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("xmobile:hwid"))

// PanelClient is the subset of the panel API used on request paths.
type PanelClient interface {
	Configured() bool
	FindUsersByTelegramID(ctx context.Context, telegramID int64) ([]panel.User, error)
	AccessibleNodes(ctx context.Context, squadUUID string) ([]panel.Node, error)
	ApplySecret(h http.Header)
}

// ContentFetcher downloads a subscription body.
type ContentFetcher interface {
	Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error)
}

// Snapshot is the normalized subscription state returned by the profile endpoint.
type Snapshot struct {
	Username           string     `json:"username"`
	SubscriptionURL    *string    `json:"subscription_url"`
	TrafficUsedGB      float64    `json:"traffic_used_gb"`
	TrafficLimitGB     float64    `json:"traffic_limit_gb"`
	TrafficUsedPercent float64    `json:"traffic_used_percent"`
	ExpiresAt          *time.Time `json:"expires_at"`
	IsActive           bool       `json:"is_active"`
	Status             string     `json:"status"`
}

// RawSubscription is a panel subscription body passed through verbatim.
type RawSubscription struct {
	Body      []byte
	SourceURL string
}

// LookupOutcome tells callers which branch the remote lookup took.
type LookupOutcome int

const (
	LookupFound LookupOutcome = iota
	LookupNotConfigured
	LookupNotFound
	LookupUpstreamFailed
)

func (o LookupOutcome) String() string {
	switch o {
	case LookupFound:
		return "found"
	case LookupNotConfigured:
		return "not_configured"
	case LookupNotFound:
		return "not_found"
	case LookupUpstreamFailed:
		return "upstream_failed"
	}
	return "unknown"
}

// LookupResult is the outcome of a panel lookup. User is set only for LookupFound,
// Err only for LookupUpstreamFailed.
type LookupResult struct {
	Outcome LookupOutcome
	User    *panel.User
	Err     error
}

// ResolverOptions configures SubscriptionResolver.
type ResolverOptions struct {
	// PublicBaseURL prefixes SubscriptionPath in snapshots.
	PublicBaseURL string
	// LookupTimeout bounds one panel lookup on a request path.
	LookupTimeout time.Duration
	// PassthroughUserAgent is sent when fetching the raw subscription body.
	PassthroughUserAgent string
	Logger               *slog.Logger
	Now                  func() time.Time
}

// SubscriptionResolver builds subscription snapshots and raw bodies for a user.
type SubscriptionResolver interface {
	Resolve(ctx context.Context, user *repository.User) (*Snapshot, error)
	ResolveRaw(ctx context.Context, user *repository.User) (*RawSubscription, error)
	SubscriptionURL(ctx context.Context, user *repository.User) (string, error)
	RemoteLookup(ctx context.Context, user *repository.User) LookupResult
}

type subscriptionResolver struct {
	subscriptions repository.SubscriptionRepository
	panel         PanelClient
	passthrough   ContentFetcher
	opts          ResolverOptions
	logger        *slog.Logger
}

// NewSubscriptionResolver wires the resolver. panelClient must have its own retry disabled.
func NewSubscriptionResolver(subscriptions repository.SubscriptionRepository, panelClient PanelClient, passthrough ContentFetcher, opts ResolverOptions) SubscriptionResolver {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if strings.TrimSpace(opts.PassthroughUserAgent) == "" {
		opts.PassthroughUserAgent = "xmobile/1.0"
	}
	opts.PublicBaseURL = strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &subscriptionResolver{
		subscriptions: subscriptions,
		panel:         panelClient,
		passthrough:   passthrough,
		opts:          opts,
		logger:        logger,
	}
}

func (r *subscriptionResolver) Resolve(ctx context.Context, user *repository.User) (*Snapshot, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	sub, err := r.subscriptions.FindByUserID(ctx, user.ID)
	switch {
	case err == nil:
		return r.fromLocal(user, sub), nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	result := r.RemoteLookup(ctx, user)
	switch result.Outcome {
	case LookupFound:
		return r.fromRemote(user, result.User), nil
	case LookupUpstreamFailed:
		r.logger.Warn("panel fallback failed for profile", "user_id", user.ID, "error", result.Err)
	}
	return noSubscription(user), nil
}

func (r *subscriptionResolver) ResolveRaw(ctx context.Context, user *repository.User) (*RawSubscription, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	result := r.RemoteLookup(ctx, user)
	switch result.Outcome {
	case LookupUpstreamFailed:
		return nil, upstreamFromPanel(result.Err)
	case LookupFound:
	default:
		return nil, ErrNotFound
	}
	sourceURL := strings.TrimSpace(result.User.SubscriptionURL)
	if sourceURL == "" {
		return nil, ErrNotFound
	}

	headers := http.Header{}
	headers.Set("User-Agent", r.opts.PassthroughUserAgent)
	headers.Set("Accept", "*/*")
	headers.Set("X-HWID", DeviceID(user.ID))
	if r.panel != nil {
		r.panel.ApplySecret(headers)
	}
	body, err := r.passthrough.Fetch(ctx, sourceURL, headers)
	var fetchErr *subscription.FetchError
	if errors.As(err, &fetchErr) && fetchErr.Kind == subscription.FailureEmptyBody {
		// 2xx 的空白正文按原样透传，由客户端判断。
		return &RawSubscription{Body: fetchErr.Body, SourceURL: sourceURL}, nil
	}
	if err != nil {
		r.logger.Error("subscription passthrough failed", "user_id", user.ID, "error", err)
		return nil, upstreamFromFetch(err)
	}
	return &RawSubscription{Body: body, SourceURL: sourceURL}, nil
}

func (r *subscriptionResolver) SubscriptionURL(ctx context.Context, user *repository.User) (string, error) {
	if user == nil {
		return "", ErrUnauthorized
	}
	result := r.RemoteLookup(ctx, user)
	if result.Outcome == LookupUpstreamFailed {
		r.logger.Warn("panel lookup failed for vpn-config", "user_id", user.ID, "error", result.Err)
	}
	if result.Outcome != LookupFound || strings.TrimSpace(result.User.SubscriptionURL) == "" {
		return "", ErrNotFound
	}
	return strings.TrimSpace(result.User.SubscriptionURL), nil
}

func (r *subscriptionResolver) RemoteLookup(ctx context.Context, user *repository.User) LookupResult {
	if r.panel == nil || !r.panel.Configured() || user == nil || user.TelegramID == nil || *user.TelegramID == 0 {
		return LookupResult{Outcome: LookupNotConfigured}
	}
	lookupCtx, cancel := context.WithTimeout(ctx, r.opts.LookupTimeout)
	defer cancel()

	users, err := r.panel.FindUsersByTelegramID(lookupCtx, *user.TelegramID)
	switch {
	case errors.Is(err, panel.ErrNotConfigured):
		return LookupResult{Outcome: LookupNotConfigured}
	case err != nil:
		return LookupResult{Outcome: LookupUpstreamFailed, Err: err}
	case len(users) == 0:
		return LookupResult{Outcome: LookupNotFound}
	}
	found := users[0]
	return LookupResult{Outcome: LookupFound, User: &found}
}

func (r *subscriptionResolver) fromLocal(user *repository.User, sub *repository.Subscription) *Snapshot {
	now := r.opts.Now()
	used := roundTo(math.Max(sub.TrafficUsedGB, 0), 2)
	limit := float64(sub.TrafficLimitGB)
	if limit < 0 {
		limit = 0
	}
	snapshot := &Snapshot{
		Username:           user.DisplayName(),
		SubscriptionURL:    r.proxyEndpoint(),
		TrafficUsedGB:      used,
		TrafficLimitGB:     limit,
		TrafficUsedPercent: UsedPercent(sub.TrafficUsedGB, limit),
		IsActive:           sub.IsActive(now),
		Status:             sub.ActualStatus(now),
	}
	if sub.EndDate != nil {
		end := sub.EndDate.UTC()
		snapshot.ExpiresAt = &end
	}
	return snapshot
}

func (r *subscriptionResolver) fromRemote(user *repository.User, remote *panel.User) *Snapshot {
	used := bytesToGB(remote.UsedTrafficBytes)
	limit := bytesToGB(remote.TrafficLimitBytes)
	snapshot := &Snapshot{
		Username:           user.DisplayName(),
		SubscriptionURL:    r.proxyEndpoint(),
		TrafficUsedGB:      used,
		TrafficLimitGB:     limit,
		TrafficUsedPercent: UsedPercent(used, limit),
		ExpiresAt:          remote.ExpireAt,
		IsActive:           remote.IsActive(),
		Status:             StatusExpired,
	}
	if snapshot.IsActive {
		snapshot.Status = StatusActive
	}
	return snapshot
}

func (r *subscriptionResolver) proxyEndpoint() *string {
	endpoint := r.opts.PublicBaseURL + SubscriptionPath
	return &endpoint
}

func noSubscription(user *repository.User) *Snapshot {
	return &Snapshot{
		Username: user.DisplayName(),
		Status:   StatusNoSubscription,
	}
}

// UsedPercent returns min(100, round(used/limit*100, 1)), 0 when limit is not positive.
func UsedPercent(used, limit float64) float64 {
	if limit <= 0 || used <= 0 {
		return 0
	}
	return math.Min(100, roundTo(used/limit*100, 1))
}

// DeviceID derives the stable X-HWID value for a local user id.
func DeviceID(userID int64) string {
	return uuid.NewSHA1(hwidNamespace, []byte(strconv.FormatInt(userID, 10))).String()
}

func bytesToGB(b int64) float64 {
	if b <= 0 {
		return 0
	}
	return roundTo(float64(b)/bytesPerGB, 2)
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
