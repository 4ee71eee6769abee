package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	allocationdomain "github.com/smallbiznis/stockroute/internal/allocation/domain"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
	orderdomain "github.com/smallbiznis/stockroute/internal/order/domain"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		errType string
		message string
	}{
		{name: "domain validation", err: orderdomain.ErrInvalidQuantity, status: http.StatusBadRequest, errType: "validation_error", message: "validation error"},
		{name: "batch too large", err: allocationdomain.ErrBatchTooLarge, status: http.StatusBadRequest, errType: "validation_error", message: "validation error"},
		{name: "foreign key", err: fmt.Errorf("%w: FOREIGN KEY constraint failed", pkgdb.ErrForeignKeyConflict), status: http.StatusConflict, errType: "integrity_conflict", message: msgForeignKeyConflict},
		{name: "duplicate key", err: fmt.Errorf("%w: UNIQUE constraint failed", pkgdb.ErrDuplicateKey), status: http.StatusConflict, errType: "integrity_conflict", message: msgDuplicateKey},
		{name: "reserved unit", err: catalogdomain.ErrUnitReserved, status: http.StatusConflict, errType: "conflict", message: "unit is reserved by an order"},
		{name: "reservation conflict", err: allocationdomain.ErrReservationConflict, status: http.StatusConflict, errType: "conflict", message: "units are no longer available for this order, plan again"},
		{name: "completed order", err: fmt.Errorf("complete: %w", orderdomain.ErrOrderCompleted), status: http.StatusConflict, errType: "conflict", message: "order is already completed"},
		{name: "store unavailable", err: fmt.Errorf("%w: connection refused", pkgdb.ErrStoreUnavailable), status: http.StatusServiceUnavailable, errType: "store_unavailable", message: msgStoreUnavailable},
		{name: "not found", err: ErrNotFound, status: http.StatusNotFound, errType: "not_found", message: "not found"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, errType: "internal_error", message: "internal server error"},
		{name: "nil", err: nil, status: http.StatusInternalServerError, errType: "internal_error", message: "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.errType, payload.Type)
			assert.Equal(t, tc.message, payload.Message)
		})
	}
}

func TestValidationErrorDetails(t *testing.T) {
	_, payload := mapError(catalogdomain.ErrInvalidSerialNumber)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, ValidationError{Field: "serial_number", Code: "invalid_serial_number", Message: "invalid value"}, payload.Errors[0])
	}

	_, payload = mapError(orderdomain.ErrDuplicateType)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "type_name", payload.Errors[0].Field)
		assert.Equal(t, "duplicate_type", payload.Errors[0].Code)
	}

	errType, code := classifyErrorForLog(orderdomain.ErrEmptyOrder)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "empty_order", code)

	errType, code = classifyErrorForLog(allocationdomain.ErrQuantityExceeded)
	assert.Equal(t, "conflict", errType)
	assert.Equal(t, "conflict", code)
}
