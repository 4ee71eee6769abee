package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/stockroute/internal/catalog/domain"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("catalog.service"),
		repo: p.Repo,
	}
}

// Intake stores a new unit. The first unit of a (owner, type) pair also
// creates the pair's critical-level row, in the same transaction.
func (s *Service) Intake(ctx context.Context, req domain.IntakeRequest) (domain.IntakeResult, error) {
	product := domain.Product{
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		TypeName:     strings.TrimSpace(req.TypeName),
		OwnerID:      strings.TrimSpace(req.Owner),
		Producent:    strings.TrimSpace(req.Producent),
		Model:        strings.TrimSpace(req.Model),
		Condition:    true,
	}
	switch {
	case product.SerialNumber == "":
		return domain.IntakeResult{}, domain.ErrInvalidSerialNumber
	case product.TypeName == "":
		return domain.IntakeResult{}, domain.ErrInvalidTypeName
	case product.OwnerID == "":
		return domain.IntakeResult{}, domain.ErrInvalidOwner
	}
	if req.Functional != nil {
		product.Condition = *req.Functional
	}
	if info := strings.TrimSpace(req.AdditionalInfo); info != "" {
		product.AdditionalInfo = &info
	}

	var created bool
	err := pkgdb.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.InsertProduct(ctx, tx, &product); err != nil {
			return err
		}
		var err error
		created, err = s.repo.EnsureCriticalLevel(ctx, tx, product.OwnerID, product.TypeName)
		return err
	})
	if err != nil {
		return domain.IntakeResult{}, err
	}

	s.log.Info("product intake",
		zap.String("serial_number", product.SerialNumber),
		zap.String("owner", product.OwnerID),
		zap.String("type", product.TypeName),
		zap.Bool("critical_level_created", created),
	)
	return domain.IntakeResult{Product: product, CriticalLevelCreated: created}, nil
}

func (s *Service) Remove(ctx context.Context, serial string) (int64, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return 0, domain.ErrInvalidSerialNumber
	}

	var affected int64
	err := pkgdb.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		affected, err = s.repo.DeleteUnreserved(ctx, tx, serial)
		if err != nil || affected > 0 {
			return err
		}

		existing, err := s.repo.FindBySerial(ctx, tx, serial)
		if err != nil {
			return err
		}
		if existing != nil && existing.Reserved() {
			return domain.ErrUnitReserved
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if affected > 0 {
		s.log.Info("product removed", zap.String("serial_number", serial))
	}
	return affected, nil
}

func (s *Service) Get(ctx context.Context, serial string) (*domain.Product, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, nil
	}
	return s.repo.FindBySerial(ctx, s.db, serial)
}

func (s *Service) ListTypes(ctx context.Context, owner string) ([]string, error) {
	types, err := s.repo.ListTypes(ctx, s.db, strings.TrimSpace(owner))
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []string{}
	}
	return types, nil
}

func (s *Service) Lookups(ctx context.Context) (domain.Lookups, error) {
	producents, err := s.repo.ListProducents(ctx, s.db)
	if err != nil {
		return domain.Lookups{}, err
	}
	models, err := s.repo.ListModels(ctx, s.db)
	if err != nil {
		return domain.Lookups{}, err
	}

	out := domain.Lookups{Producents: producents, Models: models}
	if out.Producents == nil {
		out.Producents = []string{}
	}
	if out.Models == nil {
		out.Models = []string{}
	}
	return out, nil
}

// SetCriticalLevel updates the threshold of an existing pair. Pairs are only
// created by intake, so an unknown pair affects nothing.
func (s *Service) SetCriticalLevel(ctx context.Context, req domain.SetCriticalLevelRequest) (int64, error) {
	business := strings.TrimSpace(req.Business)
	typeName := strings.TrimSpace(req.TypeName)
	switch {
	case business == "":
		return 0, domain.ErrInvalidOwner
	case typeName == "":
		return 0, domain.ErrInvalidTypeName
	case req.Amount != nil && *req.Amount < 0:
		return 0, domain.ErrInvalidCriticalAmount
	}

	affected, err := s.repo.UpdateCriticalLevel(ctx, s.db, business, typeName, req.Amount)
	if err != nil {
		return 0, err
	}

	fields := []zap.Field{
		zap.String("business", business),
		zap.String("type", typeName),
		zap.Int64("affected", affected),
	}
	if req.Amount != nil {
		fields = append(fields, zap.Int64("critical_amount", *req.Amount))
	}
	s.log.Info("critical level updated", fields...)
	return affected, nil
}
