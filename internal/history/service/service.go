package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stockroute/internal/history/domain"
	orderdomain "github.com/smallbiznis/stockroute/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	OrderRepo orderdomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	orderRepo orderdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("history.service"),
		repo:      p.Repo,
		orderRepo: p.OrderRepo,
	}
}

func (s *Service) ExpandOrder(ctx context.Context, orderID snowflake.ID) (*domain.OrderExpansion, error) {
	order, err := s.orderRepo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	units, err := s.repo.ListByOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil && len(units) == 0 {
		return nil, nil
	}

	stats, err := s.repo.SoldByType(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}

	out := &domain.OrderExpansion{
		OrderID: orderID,
		Units:   units,
		Stats:   stats,
	}
	if order != nil {
		out.Sides = &orderdomain.Sides{ClientID: order.ClientID, SupplierID: order.SupplierID}
	}
	if out.Units == nil {
		out.Units = []domain.ProductMovement{}
	}
	if out.Stats == nil {
		out.Stats = []domain.TypeSold{}
	}
	return out, nil
}
