package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
)

// PlanLine is the selection for one line item. Shortfall is Requested minus
// Allocated and is reported, not raised.
type PlanLine struct {
	TypeName       string                  `json:"type_name"`
	Requested      int64                   `json:"requested"`
	Allocated      int64                   `json:"allocated"`
	Shortfall      int64                   `json:"shortfall"`
	OnWarehouse    int64                   `json:"on_warehouse"`
	FreeFunctional int64                   `json:"free_functional"`
	Bound          int64                   `json:"bound"`
	Units          []catalogdomain.Product `json:"units"`
}

type Plan struct {
	OrderID    snowflake.ID `json:"order_id"`
	ClientID   string       `json:"client_id,omitempty"`
	SupplierID string       `json:"supplier_id,omitempty"`
	Lines      []PlanLine   `json:"lines"`
}

// Serials returns every planned serial number in line order.
func (p Plan) Serials() []string {
	var out []string
	for _, line := range p.Lines {
		for _, u := range line.Units {
			out = append(out, u.SerialNumber)
		}
	}
	return out
}

func (p Plan) Satisfied() bool {
	for _, line := range p.Lines {
		if line.Shortfall > 0 {
			return false
		}
	}
	return true
}

type RebindResult struct {
	Released int64 `json:"released"`
	Reserved int64 `json:"reserved"`
}

type ChangeStateRequest struct {
	Release   []string `json:"release"`
	Defective []string `json:"defective"`
}

type ChangeStateResult struct {
	Released  int64 `json:"released"`
	Defective int64 `json:"defective"`
}

type Service interface {
	Plan(ctx context.Context, orderID snowflake.ID) (Plan, error)
	Reserve(ctx context.Context, orderID snowflake.ID, serials []string) (int64, error)
	Release(ctx context.Context, serials []string) (int64, error)
	ReleaseAll(ctx context.Context, orderID snowflake.ID) (int64, error)
	Rebind(ctx context.Context, orderID snowflake.ID, serials []string) (RebindResult, error)
	SetCondition(ctx context.Context, serials []string, functional bool) (int64, error)
	ChangeState(ctx context.Context, req ChangeStateRequest) (ChangeStateResult, error)
}

var (
	ErrInvalidSerialNumber = errors.New("invalid_serial_number")
	ErrBatchTooLarge       = errors.New("batch_too_large")
	ErrReservationConflict = errors.New("reservation_conflict")
	ErrQuantityExceeded    = errors.New("quantity_exceeded")
)
