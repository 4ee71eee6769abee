package service

import (
	"context"
	"errors"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockroute/internal/allocation/domain"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
	"github.com/smallbiznis/stockroute/internal/config"
	"github.com/smallbiznis/stockroute/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/stockroute/internal/order/domain"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Engine      *config.EngineConfigHolder
	CatalogRepo catalogdomain.Repository
	OrderRepo   orderdomain.Repository
	Metrics     *metrics.EngineMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	engine      *config.EngineConfigHolder
	catalogRepo catalogdomain.Repository
	orderRepo   orderdomain.Repository
	metrics     *metrics.EngineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("allocation.service"),
		engine:      p.Engine,
		catalogRepo: p.CatalogRepo,
		orderRepo:   p.OrderRepo,
		metrics:     p.Metrics,
	}
}

// Plan selects units for every line item of an open order. Units already
// bound to the order come first, then free functional units by serial
// number, capped at the requested quantity. Nothing is written and nothing
// is counted.
func (s *Service) Plan(ctx context.Context, orderID snowflake.ID) (domain.Plan, error) {
	plan := domain.Plan{OrderID: orderID, Lines: []domain.PlanLine{}}

	order, err := s.orderRepo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.Plan{}, err
	}
	if order == nil {
		return plan, nil
	}
	plan.ClientID = order.ClientID
	plan.SupplierID = order.SupplierID

	items, err := s.orderRepo.ListLineItems(ctx, s.db, orderID)
	if err != nil {
		return domain.Plan{}, err
	}
	if len(items) == 0 {
		return plan, nil
	}

	counts, err := s.catalogRepo.CountByOwner(ctx, s.db, order.SupplierID)
	if err != nil {
		return domain.Plan{}, err
	}
	onWarehouse := make(map[string]int64, len(counts))
	for _, c := range counts {
		onWarehouse[c.TypeName] = c.Total
	}
	bound, err := s.catalogRepo.CountBound(ctx, s.db, orderID)
	if err != nil {
		return domain.Plan{}, err
	}

	for _, item := range items {
		candidates, err := s.catalogRepo.ListAllocatable(ctx, s.db, order.SupplierID, item.TypeName, orderID)
		if err != nil {
			return domain.Plan{}, err
		}

		line := selectUnits(item, orderID, candidates)
		line.OnWarehouse = onWarehouse[item.TypeName]
		line.Bound = bound[item.TypeName]
		plan.Lines = append(plan.Lines, line)
	}
	return plan, nil
}

// selectUnits expects candidates ordered by serial number.
func selectUnits(item orderdomain.LineItem, orderID snowflake.ID, candidates []catalogdomain.Product) domain.PlanLine {
	var held, free []catalogdomain.Product
	for _, c := range candidates {
		if c.AppearInOrder != nil && *c.AppearInOrder == orderID {
			held = append(held, c)
			continue
		}
		free = append(free, c)
	}

	selected := make([]catalogdomain.Product, 0, item.Quantity)
	for _, group := range [][]catalogdomain.Product{held, free} {
		for _, u := range group {
			if int64(len(selected)) >= item.Quantity {
				break
			}
			selected = append(selected, u)
		}
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].SerialNumber < selected[j].SerialNumber })

	allocated := int64(len(selected))
	return domain.PlanLine{
		TypeName:       item.TypeName,
		Requested:      item.Quantity,
		Allocated:      allocated,
		Shortfall:      item.Quantity - allocated,
		FreeFunctional: int64(len(free)),
		Units:          selected,
	}
}

// Reserve binds the given units to an open order. The whole batch is applied
// or nothing is: a unit that is missing, defective, held by another business,
// of a type the order does not request, or bound to another order fails the
// call with ErrReservationConflict.
func (s *Service) Reserve(ctx context.Context, orderID snowflake.ID, serials []string) (int64, error) {
	serials, err := domain.NormalizeSerials(serials, s.engine.Get().MaxReserveBatch)
	if err != nil {
		return 0, err
	}
	if len(serials) == 0 {
		return 0, nil
	}

	var (
		reserved int64
		short    []string
	)
	err = pkgdb.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		order, err := s.openOrder(ctx, tx, orderID)
		if err != nil || order == nil {
			return err
		}
		reserved, short, err = s.reserve(ctx, tx, order, serials)
		return err
	})
	if err != nil {
		s.observe("reserve", orderID, err)
		return 0, err
	}
	s.countShortfalls(short)

	if reserved > 0 {
		s.log.Info("units reserved",
			zap.String("order_id", orderID.String()),
			zap.Strings("serials", serials),
		)
	}
	return reserved, nil
}

func (s *Service) Release(ctx context.Context, serials []string) (int64, error) {
	serials, err := domain.NormalizeSerials(serials, s.engine.Get().MaxReserveBatch)
	if err != nil || len(serials) == 0 {
		return 0, err
	}

	released, err := s.catalogRepo.Release(ctx, s.db, serials)
	if err != nil {
		s.observe("release", 0, err)
		return 0, err
	}
	if released > 0 {
		s.log.Info("units released", zap.Strings("serials", serials), zap.Int64("released", released))
	}
	return released, nil
}

func (s *Service) ReleaseAll(ctx context.Context, orderID snowflake.ID) (int64, error) {
	released, err := s.catalogRepo.ReleaseByOrder(ctx, s.db, orderID)
	if err != nil {
		s.observe("release_all", orderID, err)
		return 0, err
	}
	if released > 0 {
		s.log.Info("order reservations released",
			zap.String("order_id", orderID.String()),
			zap.Int64("released", released),
		)
	}
	return released, nil
}

// Rebind replaces the order's reservations with the given set atomically.
// An empty set only releases.
func (s *Service) Rebind(ctx context.Context, orderID snowflake.ID, serials []string) (domain.RebindResult, error) {
	serials, err := domain.NormalizeSerials(serials, s.engine.Get().MaxReserveBatch)
	if err != nil {
		return domain.RebindResult{}, err
	}

	var (
		result domain.RebindResult
		short  []string
	)
	err = pkgdb.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		order, err := s.openOrder(ctx, tx, orderID)
		if err != nil || order == nil {
			return err
		}

		if result.Released, err = s.catalogRepo.ReleaseByOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if len(serials) == 0 {
			return nil
		}
		result.Reserved, short, err = s.reserve(ctx, tx, order, serials)
		return err
	})
	if err != nil {
		s.observe("rebind", orderID, err)
		return domain.RebindResult{}, err
	}
	s.countShortfalls(short)

	s.log.Info("order reservations rebound",
		zap.String("order_id", orderID.String()),
		zap.Int64("released", result.Released),
		zap.Int64("reserved", result.Reserved),
	)
	return result, nil
}

// SetCondition flips the functional flag. Reservations are left as they
// are; callers release defective units explicitly.
func (s *Service) SetCondition(ctx context.Context, serials []string, functional bool) (int64, error) {
	serials, err := domain.NormalizeSerials(serials, s.engine.Get().MaxReserveBatch)
	if err != nil || len(serials) == 0 {
		return 0, err
	}

	affected, err := s.catalogRepo.SetCondition(ctx, s.db, serials, functional)
	if err != nil {
		s.observe("set_condition", 0, err)
		return 0, err
	}
	s.log.Info("unit condition changed",
		zap.Strings("serials", serials),
		zap.Bool("functional", functional),
		zap.Int64("affected", affected),
	)
	return affected, nil
}

func (s *Service) ChangeState(ctx context.Context, req domain.ChangeStateRequest) (domain.ChangeStateResult, error) {
	limit := s.engine.Get().MaxReserveBatch
	release, err := domain.NormalizeSerials(req.Release, limit)
	if err != nil {
		return domain.ChangeStateResult{}, err
	}
	defective, err := domain.NormalizeSerials(req.Defective, limit)
	if err != nil {
		return domain.ChangeStateResult{}, err
	}

	var result domain.ChangeStateResult
	err = pkgdb.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		released, err := s.catalogRepo.Release(ctx, tx, release)
		if err != nil {
			return err
		}
		result.Released = released
		result.Defective, err = s.catalogRepo.SetCondition(ctx, tx, defective, false)
		return err
	})
	if err != nil {
		s.observe("change_state", 0, err)
		return domain.ChangeStateResult{}, err
	}

	if result.Released > 0 || result.Defective > 0 {
		s.log.Info("unit state changed",
			zap.Int64("released", result.Released),
			zap.Int64("defective", result.Defective),
		)
	}
	return result, nil
}

// openOrder locks the order row. A missing order yields nil so the caller
// reports zero rows; a completed order cannot take reservations.
func (s *Service) openOrder(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) (*orderdomain.Order, error) {
	order, err := s.orderRepo.FindForUpdate(ctx, tx, orderID)
	if err != nil || order == nil {
		return nil, err
	}
	if order.Completed() {
		return nil, orderdomain.ErrOrderCompleted
	}
	return order, nil
}

// reserve applies the compare-and-set and returns the line item types still
// bound below their requested quantity afterwards.
func (s *Service) reserve(ctx context.Context, tx *gorm.DB, order *orderdomain.Order, serials []string) (int64, []string, error) {
	items, err := s.orderRepo.ListLineItems(ctx, tx, order.OrderID)
	if err != nil {
		return 0, nil, err
	}
	requested := make(map[string]int64, len(items))
	types := make([]string, 0, len(items))
	for _, item := range items {
		requested[item.TypeName] = item.Quantity
		types = append(types, item.TypeName)
	}

	rows, err := s.catalogRepo.Reserve(ctx, tx, catalogdomain.ReserveFilter{
		OrderID: order.OrderID,
		Owner:   order.SupplierID,
		Types:   types,
		Serials: serials,
	})
	if err != nil {
		return 0, nil, err
	}
	if rows != int64(len(serials)) {
		return 0, nil, domain.ErrReservationConflict
	}

	bound, err := s.catalogRepo.CountBound(ctx, tx, order.OrderID)
	if err != nil {
		return 0, nil, err
	}
	for typeName, n := range bound {
		if n > requested[typeName] {
			return 0, nil, domain.ErrQuantityExceeded
		}
	}

	var short []string
	for _, item := range items {
		if bound[item.TypeName] < item.Quantity {
			short = append(short, item.TypeName)
		}
	}
	return rows, short, nil
}

func (s *Service) countShortfalls(types []string) {
	for _, typeName := range types {
		s.metrics.IncShortfall(typeName)
	}
}

func (s *Service) observe(operation string, orderID snowflake.ID, err error) {
	switch {
	case errors.Is(err, domain.ErrReservationConflict):
		s.metrics.IncReservationConflict()
		s.log.Warn("reservation conflict", zap.String("order_id", orderID.String()))
	case errors.Is(err, domain.ErrQuantityExceeded), errors.Is(err, orderdomain.ErrOrderCompleted):
	default:
		s.metrics.IncStoreError(operation, err)
	}
}
