package domain

import (
	"context"
	"errors"
)

type IntakeRequest struct {
	Owner          string `json:"owner"`
	SerialNumber   string `json:"serial_number"`
	TypeName       string `json:"type_name"`
	Producent      string `json:"producent"`
	Model          string `json:"model"`
	Functional     *bool  `json:"condition"`
	AdditionalInfo string `json:"additional_info"`
}

type IntakeResult struct {
	Product              Product `json:"product"`
	CriticalLevelCreated bool    `json:"critical_level_created"`
}

type Lookups struct {
	Producents []string `json:"producents"`
	Models     []string `json:"models"`
}

type SetCriticalLevelRequest struct {
	Business string `json:"business"`
	TypeName string `json:"type_name"`
	Amount   *int64 `json:"critical_amount"`
}

type Service interface {
	Intake(ctx context.Context, req IntakeRequest) (IntakeResult, error)
	Remove(ctx context.Context, serial string) (int64, error)
	Get(ctx context.Context, serial string) (*Product, error)
	ListTypes(ctx context.Context, owner string) ([]string, error)
	Lookups(ctx context.Context) (Lookups, error)
	SetCriticalLevel(ctx context.Context, req SetCriticalLevelRequest) (int64, error)
}

var (
	ErrInvalidSerialNumber   = errors.New("invalid_serial_number")
	ErrInvalidTypeName       = errors.New("invalid_type_name")
	ErrInvalidOwner          = errors.New("invalid_owner")
	ErrInvalidCriticalAmount = errors.New("invalid_critical_amount")
	ErrUnitReserved          = errors.New("unit_reserved")
)
