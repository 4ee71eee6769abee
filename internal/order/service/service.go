package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
	"github.com/smallbiznis/stockroute/internal/clock"
	"github.com/smallbiznis/stockroute/internal/config"
	"github.com/smallbiznis/stockroute/internal/order/domain"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Engine      *config.EngineConfigHolder
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	engine      *config.EngineConfigHolder
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		engine:      p.Engine,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.OrderDetail, error) {
	client := strings.TrimSpace(req.ClientID)
	if client == "" {
		return domain.OrderDetail{}, domain.ErrInvalidClient
	}
	supplier := strings.TrimSpace(req.SupplierID)
	if supplier == "" {
		return domain.OrderDetail{}, domain.ErrInvalidSupplier
	}

	inputs, err := s.normalizeItems(req.Items)
	if err != nil {
		return domain.OrderDetail{}, err
	}

	orderDate := s.clock.Now()
	if req.OrderDate != nil {
		orderDate = req.OrderDate.UTC()
	}

	order := domain.Order{
		OrderID:    s.genID.Generate(),
		ClientID:   client,
		SupplierID: supplier,
		OrderDate:  orderDate,
	}
	items := make([]domain.LineItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, domain.LineItem{OrderID: order.OrderID, TypeName: in.TypeName, Quantity: in.Quantity})
	}

	err = pkgdb.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		return s.repo.InsertLineItems(ctx, tx, items)
	})
	if err != nil {
		return domain.OrderDetail{}, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.OrderID.String()),
		zap.String("client", client),
		zap.String("supplier", supplier),
		zap.Int("line_items", len(items)),
	)
	return domain.OrderDetail{Order: order, Items: items}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.OrderDetail, error) {
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil || order == nil {
		return nil, err
	}

	items, err := s.repo.ListLineItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	return &domain.OrderDetail{Order: *order, Items: items}, nil
}

func (s *Service) Sides(ctx context.Context, id snowflake.ID) (*domain.Sides, error) {
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil || order == nil {
		return nil, err
	}
	return &domain.Sides{ClientID: order.ClientID, SupplierID: order.SupplierID}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Order, error) {
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, domain.ErrInvalidDateRange
	}

	orders, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Business: strings.TrimSpace(req.Business),
		History:  req.History,
		From:     req.From,
		To:       req.To,
	})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// ReplaceLineItems swaps the requested mix of an open order. Reservations
// for removed types are released, and a type whose quantity shrank below its
// bound count keeps only its lowest serial numbers.
func (s *Service) ReplaceLineItems(ctx context.Context, id snowflake.ID, items []domain.LineItemInput) (domain.ReplaceResult, error) {
	inputs, err := s.normalizeItems(items)
	if err != nil {
		return domain.ReplaceResult{}, err
	}

	var result domain.ReplaceResult
	err = pkgdb.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		order, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return nil
		}
		if order.Completed() {
			return domain.ErrOrderCompleted
		}

		current, err := s.repo.ListLineItems(ctx, tx, id)
		if err != nil {
			return err
		}
		existing := make(map[string]int64, len(current))
		for _, item := range current {
			existing[item.TypeName] = item.Quantity
		}

		wanted := make(map[string]int64, len(inputs))
		var inserts []domain.LineItem
		for _, in := range inputs {
			wanted[in.TypeName] = in.Quantity
			qty, ok := existing[in.TypeName]
			switch {
			case !ok:
				inserts = append(inserts, domain.LineItem{OrderID: id, TypeName: in.TypeName, Quantity: in.Quantity})
			case qty != in.Quantity:
				n, err := s.repo.UpdateLineItemQuantity(ctx, tx, id, in.TypeName, in.Quantity)
				if err != nil {
					return err
				}
				result.Updated += n
			}
		}

		var removed []string
		for _, item := range current {
			if _, ok := wanted[item.TypeName]; !ok {
				removed = append(removed, item.TypeName)
			}
		}

		if result.Deleted, err = s.repo.DeleteLineItems(ctx, tx, id, removed); err != nil {
			return err
		}
		if err := s.repo.InsertLineItems(ctx, tx, inserts); err != nil {
			return err
		}
		result.Inserted = int64(len(inserts))

		released, err := s.catalogRepo.ReleaseByOrderAndTypes(ctx, tx, id, removed)
		if err != nil {
			return err
		}
		result.Released = released

		excess, err := s.excessReservations(ctx, tx, id, wanted)
		if err != nil {
			return err
		}
		released, err = s.catalogRepo.Release(ctx, tx, excess)
		if err != nil {
			return err
		}
		result.Released += released
		return nil
	})
	if err != nil {
		return domain.ReplaceResult{}, err
	}

	s.log.Info("order line items replaced",
		zap.String("order_id", id.String()),
		zap.Int64("updated", result.Updated),
		zap.Int64("inserted", result.Inserted),
		zap.Int64("deleted", result.Deleted),
		zap.Int64("released", result.Released),
	)
	return result, nil
}

func (s *Service) excessReservations(ctx context.Context, tx *gorm.DB, id snowflake.ID, wanted map[string]int64) ([]string, error) {
	bound, err := s.catalogRepo.ListBound(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	kept := make(map[string]int64, len(wanted))
	var excess []string
	// bound is ordered by type then serial, so the lowest serials are kept
	for _, unit := range bound {
		if kept[unit.TypeName] >= wanted[unit.TypeName] {
			excess = append(excess, unit.SerialNumber)
			continue
		}
		kept[unit.TypeName]++
	}
	return excess, nil
}

// Delete removes an order in either state: its reservations are released and
// its line items deleted before the header. Movement history is kept.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) (domain.DeleteResult, error) {
	var result domain.DeleteResult
	err := pkgdb.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		order, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil || order == nil {
			return err
		}

		if result.Released, err = s.catalogRepo.ReleaseByOrder(ctx, tx, id); err != nil {
			return err
		}
		if result.LineItems, err = s.repo.DeleteAllLineItems(ctx, tx, id); err != nil {
			return err
		}
		result.Affected, err = s.repo.Delete(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.DeleteResult{}, err
	}

	if result.Affected > 0 {
		s.log.Info("order deleted",
			zap.String("order_id", id.String()),
			zap.Int64("released", result.Released),
			zap.Int64("line_items", result.LineItems),
		)
	}
	return result, nil
}

func (s *Service) normalizeItems(items []domain.LineItemInput) ([]domain.LineItemInput, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	maxQty := int64(s.engine.Get().MaxLineQuantity)
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.LineItemInput, 0, len(items))
	for _, item := range items {
		typeName := strings.TrimSpace(item.TypeName)
		if typeName == "" {
			return nil, domain.ErrInvalidTypeName
		}
		if item.Quantity <= 0 || item.Quantity > maxQty {
			return nil, domain.ErrInvalidQuantity
		}
		if _, dup := seen[typeName]; dup {
			return nil, domain.ErrDuplicateType
		}
		seen[typeName] = struct{}{}
		out = append(out, domain.LineItemInput{TypeName: typeName, Quantity: item.Quantity})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out, nil
}
