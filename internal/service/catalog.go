// 文件路径: internal/service/catalog.go
// 模块说明: 服务器目录聚合。面板未配置时每个 squad 一条（直连模式）；
// 配置后并发查询每个 squad 的可访问节点，每个节点一条（展开模式）。
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/creamcroissant/xboard-mobile/internal/catalog"
	"github.com/creamcroissant/xboard-mobile/internal/panel"
	"github.com/creamcroissant/xboard-mobile/internal/repository"
)

// Expanded-mode fallbacks used when no squad returned any node.
const (
	FallbackEmpty  = "empty"
	FallbackDirect = "direct"
)

// CatalogOptions configures CatalogService.
type CatalogOptions struct {
	// ExpandedFallback is FallbackEmpty or FallbackDirect.
	ExpandedFallback string
	// FanoutLimit caps concurrent node lookups; 0 means 8.
	FanoutLimit   int
	LookupTimeout time.Duration
	Labels        *catalog.Labels
	Logger        *slog.Logger
}

// CatalogService builds the categorized server catalog.
type CatalogService interface {
	// List returns the catalog visible to user; user may be nil for anonymous callers.
	List(ctx context.Context, user *repository.User, lang string) (*catalog.Catalog, error)
}

type catalogService struct {
	squads      repository.ServerSquadRepository
	promoGroups repository.PromoGroupRepository
	panel       PanelClient
	opts        CatalogOptions
	logger      *slog.Logger
}

// NewCatalogService wires the aggregator. panelClient must have its own retry disabled.
func NewCatalogService(squads repository.ServerSquadRepository, promoGroups repository.PromoGroupRepository, panelClient PanelClient, opts CatalogOptions) CatalogService {
	if opts.FanoutLimit <= 0 {
		opts.FanoutLimit = 8
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 5 * time.Second
	}
	if opts.ExpandedFallback != FallbackDirect {
		opts.ExpandedFallback = FallbackEmpty
	}
	if opts.Labels == nil {
		opts.Labels = catalog.MustBuiltinLabels("ru")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogService{
		squads:      squads,
		promoGroups: promoGroups,
		panel:       panelClient,
		opts:        opts,
		logger:      logger,
	}
}

func (s *catalogService) List(ctx context.Context, user *repository.User, lang string) (*catalog.Catalog, error) {
	promoGroupID, err := s.promoGroupFor(ctx, user)
	if err != nil {
		return nil, err
	}
	squads, err := s.squads.ListAvailable(ctx, promoGroupID)
	if err != nil {
		return nil, fmt.Errorf("list squads: %w", err)
	}

	if s.panel == nil || !s.panel.Configured() {
		return catalog.Group(directEntries(squads), s.opts.Labels, lang), nil
	}

	entries, anyNodes := s.expandedEntries(ctx, squads)
	if !anyNodes {
		s.logger.Warn("no squad returned accessible nodes", "squads", len(squads), "fallback", s.opts.ExpandedFallback)
		if s.opts.ExpandedFallback == FallbackDirect {
			return catalog.Group(directEntries(squads), s.opts.Labels, lang), nil
		}
		return catalog.Empty(), nil
	}
	return catalog.Group(entries, s.opts.Labels, lang), nil
}

// promoGroupFor 用户自己的优惠组优先，其次默认优惠组，都没有则不过滤。
func (s *catalogService) promoGroupFor(ctx context.Context, user *repository.User) (*int64, error) {
	if user != nil && user.PromoGroupID != nil {
		return user.PromoGroupID, nil
	}
	if s.promoGroups == nil {
		return nil, nil
	}
	group, err := s.promoGroups.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("default promo group: %w", err)
	}
	return &group.ID, nil
}

func directEntries(squads []*repository.ServerSquad) []catalog.Server {
	entries := make([]catalog.Server, 0, len(squads))
	for _, squad := range squads {
		entries = append(entries, squadEntry(squad, squad.ID, squad.DisplayName, squad.CountryCode))
	}
	return entries
}

// expandedEntries 每个 squad 一个 goroutine；单个失败只丢弃该 squad，不影响其它查询。
func (s *catalogService) expandedEntries(ctx context.Context, squads []*repository.ServerSquad) ([]catalog.Server, bool) {
	nodesBySquad := make([][]panel.Node, len(squads))
	var g errgroup.Group
	g.SetLimit(s.opts.FanoutLimit)
	for i, squad := range squads {
		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
			defer cancel()
			nodes, err := s.panel.AccessibleNodes(lookupCtx, squad.SquadUUID)
			if err != nil {
				s.logger.Warn("accessible nodes lookup failed", "squad_id", squad.ID, "squad_uuid", squad.SquadUUID, "error", err)
				return nil
			}
			nodesBySquad[i] = nodes
			return nil
		})
	}
	_ = g.Wait()

	// 节点没有自己的数字 id，按 squad、节点的顺序在本次响应内连续编号。
	var (
		entries  []catalog.Server
		anyNodes bool
		nextID   int64
	)
	for i, squad := range squads {
		for _, node := range nodesBySquad[i] {
			anyNodes = true
			nextID++
			name := squad.DisplayName
			if node.Name != "" {
				name = squad.DisplayName + " — " + node.Name
			}
			country := squad.CountryCode
			if strings.TrimSpace(node.CountryCode) != "" {
				country = node.CountryCode
			}
			entry := squadEntry(squad, nextID, name, country)
			entry.MatchKey = node.Name
			entries = append(entries, entry)
		}
	}
	return entries, anyNodes
}

func squadEntry(squad *repository.ServerSquad, id int64, name, countryCode string) catalog.Server {
	entry := catalog.Server{
		ID:           id,
		Name:         name,
		Flag:         catalog.Flag(countryCode),
		Category:     squad.Category,
		IsAvailable:  !squad.IsFull(),
		LoadPercent:  catalog.LoadPercent(squad.CurrentUsers, squad.MaxUsers),
		QualityLevel: catalog.QualityLevel(squad.CurrentUsers, squad.MaxUsers),
	}
	if code := strings.TrimSpace(countryCode); code != "" {
		entry.CountryCode = &code
	}
	return entry
}
