package domain

import (
	"context"

	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
)

// TypeStatistics is one row of a business's stock dashboard.
type TypeStatistics struct {
	TypeName       string `json:"Type"`
	Total          int64  `json:"Count"`
	Functional     int64  `json:"Functional count"`
	Reserved       int64  `json:"Reserved"`
	Ordered        int64  `json:"Ordered"`
	CriticalAmount *int64 `json:"Critical level"`
	BelowCritical  bool   `json:"Below critical"`
}

type ExpansionSummary struct {
	TotalOrdered int64 `json:"Total ordered amount"`
	OnWarehouse  int64 `json:"All amount on warehouse"`
	Functional   int64 `json:"Amount of functional"`
}

type TypeSummary struct {
	TypeName       string `json:"Type"`
	TotalOrdered   int64  `json:"Total ordered amount"`
	OnWarehouse    int64  `json:"All amount on warehouse"`
	Functional     int64  `json:"Amount of functional"`
	CriticalAmount *int64 `json:"Critical level"`
}

type TypeExpansion struct {
	Units     []catalogdomain.Product `json:"units"`
	Summary   ExpansionSummary        `json:"summary"`
	TypeStats []TypeSummary           `json:"type_stats"`
}

type Service interface {
	Statistics(ctx context.Context, owner string) ([]TypeStatistics, error)
	ExpandTypes(ctx context.Context, owner string, types []string) (TypeExpansion, error)
}
