package domain

import (
	"context"
	"errors"
)

type CreateRequest struct {
	Name      string `json:"name"`
	IsService bool   `json:"is_service"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Business, error)
	Delete(ctx context.Context, name string) (int64, error)
	List(ctx context.Context) ([]Business, error)
	Get(ctx context.Context, name string) (*Business, error)
	SetServiceStatus(ctx context.Context, name string, isService bool) (int64, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
)
