// 文件路径: internal/service/tariffs.go
// 模块说明: 套餐列表。匿名请求按默认优惠组计算折扣，登录用户按自己的优惠组，并标记当前套餐。
package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/creamcroissant/xboard-mobile/internal/repository"
	"github.com/creamcroissant/xboard-mobile/internal/support/i18n"
)

// TariffPeriod is one purchasable period of a tariff.
type TariffPeriod struct {
	Days               int     `json:"days"`
	Months             int     `json:"months"`
	Label              string  `json:"label"`
	PriceLabel         string  `json:"price_label"`
	PricePerMonthLabel string  `json:"price_per_month_label"`
	DiscountPercent    int     `json:"discount_percent"`
	OriginalPriceLabel *string `json:"original_price_label"`
}

// Tariff is a tariff with all of its purchasable periods.
type Tariff struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	Description       *string        `json:"description"`
	TrafficLimitGB    int64          `json:"traffic_limit_gb"`
	TrafficLimitLabel string         `json:"traffic_limit_label"`
	DeviceLimit       int64          `json:"device_limit"`
	Periods           []TariffPeriod `json:"periods"`
	IsCurrent         bool           `json:"is_current"`
}

// TariffList is the body of the tariffs endpoint.
type TariffList struct {
	Tariffs         []Tariff `json:"tariffs"`
	CurrentTariffID *int64   `json:"current_tariff_id"`
}

// TariffOptions configures TariffService.
type TariffOptions struct {
	// AvailablePeriods limits the periods shown; empty shows all.
	AvailablePeriods []int
	Prices           *PriceFormatter
	Translator       Translator
	DefaultLanguage  string
	Logger           *slog.Logger
}

// TariffService lists purchasable tariffs.
type TariffService interface {
	List(ctx context.Context, user *repository.User) (*TariffList, error)
}

type tariffService struct {
	tariffs       repository.TariffRepository
	promoGroups   repository.PromoGroupRepository
	subscriptions repository.SubscriptionRepository
	allowed       map[int]struct{}
	opts          TariffOptions
	logger        *slog.Logger
}

const maxSanitizeRounds = 4

var descriptionSanitizer = sync.OnceValue(func() *bluemonday.Policy {
	return bluemonday.StrictPolicy()
})

// NewTariffService wires the tariff listing.
func NewTariffService(tariffs repository.TariffRepository, promoGroups repository.PromoGroupRepository, subscriptions repository.SubscriptionRepository, opts TariffOptions) TariffService {
	if opts.Prices == nil {
		opts.Prices = NewPriceFormatter("ru", "₽")
	}
	if opts.Translator == nil {
		opts.Translator = i18n.MustManager()
	}
	if strings.TrimSpace(opts.DefaultLanguage) == "" {
		opts.DefaultLanguage = i18n.DefaultLanguage
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[int]struct{}, len(opts.AvailablePeriods))
	for _, days := range opts.AvailablePeriods {
		allowed[days] = struct{}{}
	}
	return &tariffService{
		tariffs:       tariffs,
		promoGroups:   promoGroups,
		subscriptions: subscriptions,
		allowed:       allowed,
		opts:          opts,
		logger:        logger,
	}
}

func (s *tariffService) List(ctx context.Context, user *repository.User) (*TariffList, error) {
	var (
		group           *repository.PromoGroup
		currentTariffID *int64
		lang            = s.opts.DefaultLanguage
	)
	if user != nil {
		if user.PromoGroupID != nil {
			found, err := s.promoGroups.FindByID(ctx, *user.PromoGroupID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("promo group: %w", err)
			}
			group = found
		}
		if strings.TrimSpace(user.Language) != "" {
			lang = user.Language
		}
		sub, err := s.subscriptions.FindByUserID(ctx, user.ID)
		switch {
		case err == nil:
			currentTariffID = sub.TariffID
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("subscription: %w", err)
		}
	} else {
		found, err := s.promoGroups.FindDefault(ctx)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("default promo group: %w", err)
		}
		group = found
	}

	var promoGroupID *int64
	if group != nil {
		promoGroupID = &group.ID
	}
	tariffs, err := s.tariffs.ListForPromoGroup(ctx, promoGroupID)
	if err != nil {
		return nil, fmt.Errorf("list tariffs: %w", err)
	}

	list := &TariffList{Tariffs: make([]Tariff, 0, len(tariffs)), CurrentTariffID: currentTariffID}
	for _, tariff := range tariffs {
		if len(tariff.PeriodPrices) == 0 {
			continue
		}
		built, err := s.buildTariff(tariff, group, currentTariffID, lang)
		if err != nil {
			return nil, err
		}
		list.Tariffs = append(list.Tariffs, built)
	}
	return list, nil
}

func (s *tariffService) buildTariff(tariff *repository.Tariff, group *repository.PromoGroup, currentTariffID *int64, lang string) (Tariff, error) {
	type period struct {
		days  int
		price int64
	}
	periods := make([]period, 0, len(tariff.PeriodPrices))
	for key, price := range tariff.PeriodPrices {
		days, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return Tariff{}, fmt.Errorf("tariff %d: invalid period %q: %w", tariff.ID, key, err)
		}
		if price < 0 {
			continue
		}
		if _, ok := s.allowed[days]; len(s.allowed) > 0 && !ok {
			continue
		}
		periods = append(periods, period{days: days, price: price})
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].days < periods[j].days })

	trafficLabel := s.opts.Translator.Translate(lang, "tariff.traffic_unlimited")
	if tariff.TrafficLimitGB != 0 {
		trafficLabel = s.opts.Translator.Translate(lang, "tariff.traffic_gb", tariff.TrafficLimitGB)
	}

	out := Tariff{
		ID:                tariff.ID,
		Name:              tariff.Name,
		Description:       sanitizeDescription(tariff.Description),
		TrafficLimitGB:    tariff.TrafficLimitGB,
		TrafficLimitLabel: trafficLabel,
		DeviceLimit:       tariff.DeviceLimit,
		Periods:           make([]TariffPeriod, 0, len(periods)),
		IsCurrent:         currentTariffID != nil && *currentTariffID == tariff.ID,
	}
	for _, p := range periods {
		out.Periods = append(out.Periods, s.buildPeriod(p.days, p.price, group, lang))
	}
	return out, nil
}

func (s *tariffService) buildPeriod(days int, base int64, group *repository.PromoGroup, lang string) TariffPeriod {
	months := days / 30
	if months < 1 {
		months = 1
	}
	discount := group.PeriodDiscountPercent(days)
	final := base
	if discount > 0 {
		final = base - base*int64(discount)/100
	}
	perMonth := final / int64(months)

	period := TariffPeriod{
		Days:               days,
		Months:             months,
		Label:              periodLabel(s.opts.Translator, lang, days),
		PriceLabel:         s.opts.Prices.Format(final),
		PricePerMonthLabel: s.opts.Translator.Translate(lang, "tariff.per_month", s.opts.Prices.Format(perMonth)),
		DiscountPercent:    discount,
	}
	if discount > 0 {
		original := s.opts.Prices.Format(base)
		period.OriginalPriceLabel = &original
	}
	return period
}

// sanitizeDescription 把描述还原成纯文本。实体解码后可能重新出现标签，
// 所以反复清洗直到结果稳定；几轮内不稳定的输入只返回转义后的文本。
func sanitizeDescription(raw string) *string {
	policy := descriptionSanitizer()
	text := raw
	stable := false
	for i := 0; i < maxSanitizeRounds; i++ {
		next := html.UnescapeString(policy.Sanitize(text))
		if next == text {
			stable = true
			break
		}
		text = next
	}
	if !stable {
		text = policy.Sanitize(text)
	}
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
