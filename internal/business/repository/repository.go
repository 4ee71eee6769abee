package repository

import (
	"github.com/smallbiznis/stockroute/internal/business/domain"
	"github.com/smallbiznis/stockroute/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) domain.Repository {
	return repository.ProvideStore[domain.Business](db, "name")
}
