package service

import (
	"context"
	"sort"
	"strings"

	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
	"github.com/smallbiznis/stockroute/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/stockroute/internal/order/domain"
	"github.com/smallbiznis/stockroute/internal/stock/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	CatalogRepo catalogdomain.Repository
	OrderRepo   orderdomain.Repository
	Metrics     *metrics.EngineMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	catalogRepo catalogdomain.Repository
	orderRepo   orderdomain.Repository
	metrics     *metrics.EngineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("stock.service"),
		catalogRepo: p.CatalogRepo,
		orderRepo:   p.OrderRepo,
		metrics:     p.Metrics,
	}
}

// Statistics aggregates the owner's units per type. A breach is a set
// threshold with fewer functional units than the threshold; it is reported,
// never enforced.
func (s *Service) Statistics(ctx context.Context, owner string) ([]domain.TypeStatistics, error) {
	owner = strings.TrimSpace(owner)
	out := []domain.TypeStatistics{}
	if owner == "" {
		return out, nil
	}

	counts, err := s.catalogRepo.CountByOwner(ctx, s.db, owner)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return out, nil
	}
	ordered, err := s.orderRepo.OrderedAmount(ctx, s.db, owner, nil)
	if err != nil {
		return nil, err
	}
	levels, err := s.criticalAmounts(ctx, owner, nil)
	if err != nil {
		return nil, err
	}

	for _, c := range counts {
		row := domain.TypeStatistics{
			TypeName:       c.TypeName,
			Total:          c.Total,
			Functional:     c.Functional,
			Reserved:       c.Reserved,
			Ordered:        ordered[c.TypeName],
			CriticalAmount: levels[c.TypeName],
		}
		row.BelowCritical = row.CriticalAmount != nil && row.Functional < *row.CriticalAmount
		s.metrics.SetCriticalBreach(owner, c.TypeName, row.BelowCritical)
		out = append(out, row)
	}
	return out, nil
}

// ExpandTypes lists the owner's units of the requested types with their
// warehouse summary, overall and per type.
func (s *Service) ExpandTypes(ctx context.Context, owner string, types []string) (domain.TypeExpansion, error) {
	owner = strings.TrimSpace(owner)
	types = normalizeTypes(types)
	out := domain.TypeExpansion{
		Units:     []catalogdomain.Product{},
		TypeStats: []domain.TypeSummary{},
	}
	if owner == "" || len(types) == 0 {
		return out, nil
	}

	units, err := s.catalogRepo.ListByOwnerAndTypes(ctx, s.db, owner, types)
	if err != nil {
		return domain.TypeExpansion{}, err
	}
	ordered, err := s.orderRepo.OrderedAmount(ctx, s.db, owner, types)
	if err != nil {
		return domain.TypeExpansion{}, err
	}
	levels, err := s.criticalAmounts(ctx, owner, types)
	if err != nil {
		return domain.TypeExpansion{}, err
	}

	perType := make(map[string]*domain.TypeSummary, len(types))
	for _, t := range types {
		perType[t] = &domain.TypeSummary{
			TypeName:       t,
			TotalOrdered:   ordered[t],
			CriticalAmount: levels[t],
		}
		out.Summary.TotalOrdered += ordered[t]
	}
	for _, u := range units {
		summary := perType[u.TypeName]
		summary.OnWarehouse++
		out.Summary.OnWarehouse++
		if u.Condition {
			summary.Functional++
			out.Summary.Functional++
		}
	}

	if len(units) > 0 {
		out.Units = units
	}
	for _, t := range types {
		out.TypeStats = append(out.TypeStats, *perType[t])
	}
	return out, nil
}

func (s *Service) criticalAmounts(ctx context.Context, owner string, types []string) (map[string]*int64, error) {
	levels, err := s.catalogRepo.ListCriticalLevels(ctx, s.db, owner, types)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*int64, len(levels))
	for _, l := range levels {
		out[l.TypeName] = l.CriticalAmount
	}
	return out, nil
}

func normalizeTypes(types []string) []string {
	seen := make(map[string]struct{}, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
