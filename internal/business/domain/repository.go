package domain

import (
	"github.com/smallbiznis/stockroute/pkg/repository"
)

type Repository = repository.Repository[Business]
