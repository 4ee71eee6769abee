package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/stockroute/internal/allocation/domain"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
	"github.com/smallbiznis/stockroute/internal/clock"
	"github.com/smallbiznis/stockroute/internal/config"
	"github.com/smallbiznis/stockroute/internal/fulfillment/domain"
	historydomain "github.com/smallbiznis/stockroute/internal/history/domain"
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
	Clock       clock.Clock
	Engine      *config.EngineConfigHolder
	OrderRepo   orderdomain.Repository
	CatalogRepo catalogdomain.Repository
	HistoryRepo historydomain.Repository
	Metrics     *metrics.EngineMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	engine      *config.EngineConfigHolder
	orderRepo   orderdomain.Repository
	catalogRepo catalogdomain.Repository
	historyRepo historydomain.Repository
	metrics     *metrics.EngineMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("fulfillment.service"),
		clock:       p.Clock,
		engine:      p.Engine,
		orderRepo:   p.OrderRepo,
		catalogRepo: p.CatalogRepo,
		historyRepo: p.HistoryRepo,
		metrics:     p.Metrics,
	}
}

// Complete runs the completion protocol in one transaction: the confirmed
// units are copied into history, handed to the target owner and released,
// the order's remaining reservations are cleared, and the order is stamped
// and emptied of line items.
//
// Serials already recorded for the order are skipped, so a repeated call
// never duplicates history. Repeating a call on a completed order succeeds
// only when it brings no new serials.
func (s *Service) Complete(ctx context.Context, req domain.CompleteRequest) (domain.Result, error) {
	target := strings.TrimSpace(req.TargetOwner)
	if target == "" {
		return domain.Result{}, domain.ErrInvalidTargetOwner
	}
	serials, err := allocationdomain.NormalizeSerials(req.SerialNumbers, s.engine.Get().MaxReserveBatch)
	if err != nil {
		return domain.Result{}, err
	}

	result := domain.Result{OrderID: req.OrderID}
	err = pkgdb.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindForUpdate(ctx, tx, req.OrderID)
		if err != nil || order == nil {
			return err
		}

		pending, err := s.pendingSerials(ctx, tx, req.OrderID, serials)
		if err != nil {
			return err
		}
		result.Skipped = int64(len(serials) - len(pending))

		if order.Completed() {
			if len(pending) > 0 {
				return orderdomain.ErrOrderCompleted
			}
			result.CompletedAt = order.CompletionDate
			return nil
		}

		units, err := s.confirmedUnits(ctx, tx, order, pending)
		if err != nil {
			return err
		}

		movements := make([]historydomain.ProductMovement, 0, len(units))
		for _, u := range units {
			movements = append(movements, historydomain.ProductMovement{
				OrderID:      order.OrderID,
				SerialNumber: u.SerialNumber,
				TypeName:     u.TypeName,
				Producent:    u.Producent,
				Model:        u.Model,
			})
		}
		if result.Moved, err = s.historyRepo.Append(ctx, tx, movements); err != nil {
			return err
		}
		if _, err := s.catalogRepo.TransferOwnership(ctx, tx, pending, target); err != nil {
			return err
		}
		if err := s.ensureCriticalLevels(ctx, tx, target, units); err != nil {
			return err
		}
		if result.Released, err = s.catalogRepo.ReleaseByOrder(ctx, tx, order.OrderID); err != nil {
			return err
		}

		now := s.clock.Now()
		if result.Affected, err = s.orderRepo.MarkCompleted(ctx, tx, order.OrderID, now); err != nil {
			return err
		}
		if _, err := s.orderRepo.DeleteAllLineItems(ctx, tx, order.OrderID); err != nil {
			return err
		}
		result.CompletedAt = &now
		return nil
	})
	if err != nil {
		if !isRuleViolation(err) {
			s.metrics.IncStoreError("complete", err)
		}
		s.log.Warn("order completion failed",
			zap.String("order_id", req.OrderID.String()),
			zap.Error(err),
		)
		return domain.Result{}, err
	}

	if result.Affected > 0 {
		s.metrics.RecordCompletion(int(result.Moved))
		s.log.Info("order completed",
			zap.String("order_id", req.OrderID.String()),
			zap.String("target_owner", target),
			zap.Strings("serials", serials),
			zap.Int64("moved", result.Moved),
			zap.Int64("skipped", result.Skipped),
			zap.Int64("released", result.Released),
		)
	}
	return result, nil
}

func (s *Service) pendingSerials(ctx context.Context, tx *gorm.DB, orderID snowflake.ID, serials []string) ([]string, error) {
	if len(serials) == 0 {
		return nil, nil
	}
	recorded, err := s.historyRepo.SerialsRecorded(ctx, tx, orderID, serials)
	if err != nil {
		return nil, err
	}
	done := make(map[string]struct{}, len(recorded))
	for _, serial := range recorded {
		done[serial] = struct{}{}
	}

	pending := make([]string, 0, len(serials))
	for _, serial := range serials {
		if _, ok := done[serial]; !ok {
			pending = append(pending, serial)
		}
	}
	return pending, nil
}

// confirmedUnits loads the units to hand over. Each must be held by the
// supplier, be of a type the order requests and not be bound elsewhere.
func (s *Service) confirmedUnits(ctx context.Context, tx *gorm.DB, order *orderdomain.Order, serials []string) ([]catalogdomain.Product, error) {
	if len(serials) == 0 {
		return nil, nil
	}

	items, err := s.orderRepo.ListLineItems(ctx, tx, order.OrderID)
	if err != nil {
		return nil, err
	}
	ordered := make(map[string]struct{}, len(items))
	for _, item := range items {
		ordered[item.TypeName] = struct{}{}
	}

	units, err := s.catalogRepo.FindBySerials(ctx, tx, serials)
	if err != nil {
		return nil, err
	}
	if len(units) != len(serials) {
		return nil, domain.ErrUnitNotAvailable
	}
	for _, u := range units {
		if u.OwnerID != order.SupplierID {
			return nil, domain.ErrUnitNotAvailable
		}
		if _, ok := ordered[u.TypeName]; !ok {
			return nil, domain.ErrUnitNotAvailable
		}
		if u.AppearInOrder != nil && *u.AppearInOrder != order.OrderID {
			return nil, domain.ErrUnitNotAvailable
		}
	}
	return units, nil
}

// ensureCriticalLevels gives the target owner a critical-level row for every
// type it received, as intake does for a first unit.
func (s *Service) ensureCriticalLevels(ctx context.Context, tx *gorm.DB, owner string, units []catalogdomain.Product) error {
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if _, ok := seen[u.TypeName]; ok {
			continue
		}
		seen[u.TypeName] = struct{}{}
		if _, err := s.catalogRepo.EnsureCriticalLevel(ctx, tx, owner, u.TypeName); err != nil {
			return err
		}
	}
	return nil
}

func isRuleViolation(err error) bool {
	return errors.Is(err, orderdomain.ErrOrderCompleted) ||
		errors.Is(err, domain.ErrUnitNotAvailable)
}
