package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/stockroute/internal/business/domain"
	"github.com/smallbiznis/stockroute/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:  p.Log.Named("business.service"),
		repo: p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Business, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Business{}, domain.ErrInvalidName
	}

	business := domain.Business{Name: name, IsService: req.IsService}
	if err := s.repo.Create(ctx, &business); err != nil {
		return domain.Business{}, err
	}

	s.log.Info("business created", zap.String("business", name), zap.Bool("is_service", req.IsService))
	return business, nil
}

func (s *Service) Delete(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}

	affected, err := s.repo.Delete(ctx, name)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.log.Info("business deleted", zap.String("business", name))
	}
	return affected, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Business, error) {
	rows, err := s.repo.Find(ctx, nil, repository.OrderBy("name asc"))
	if err != nil {
		return nil, err
	}

	out := make([]domain.Business, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, name string) (*domain.Business, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	return s.repo.FindOne(ctx, &domain.Business{Name: name})
}

func (s *Service) SetServiceStatus(ctx context.Context, name string, isService bool) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}
	return s.repo.Update(ctx, name, map[string]any{"is_service": isService})
}
