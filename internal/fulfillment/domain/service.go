package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CompleteRequest struct {
	OrderID       snowflake.ID `json:"-"`
	TargetOwner   string       `json:"target_owner"`
	SerialNumbers []string     `json:"serial_numbers"`
}

// Result reports what a completion call changed. Affected is 1 when the
// order moved to completed and 0 for a missing order or a repeated call.
type Result struct {
	OrderID     snowflake.ID `json:"order_id"`
	Affected    int64        `json:"affected"`
	Moved       int64        `json:"moved"`
	Skipped     int64        `json:"skipped"`
	Released    int64        `json:"released"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

type Service interface {
	Complete(ctx context.Context, req CompleteRequest) (Result, error)
}

var (
	ErrInvalidTargetOwner = errors.New("invalid_target_owner")
	ErrUnitNotAvailable   = errors.New("unit_not_available")
)
