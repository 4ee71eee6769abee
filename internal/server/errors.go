package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	allocationdomain "github.com/smallbiznis/stockroute/internal/allocation/domain"
	businessdomain "github.com/smallbiznis/stockroute/internal/business/domain"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
	fulfillmentdomain "github.com/smallbiznis/stockroute/internal/fulfillment/domain"
	orderdomain "github.com/smallbiznis/stockroute/internal/order/domain"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
)

const (
	msgForeignKeyConflict = "You can't delete it because it already was a part of an order"
	msgDuplicateKey       = "Provided key already exists in database"
	msgStoreUnavailable   = "Connection with database server lost"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, pkgdb.ErrForeignKeyConflict):
		return http.StatusConflict, errorPayload{
			Type:    "integrity_conflict",
			Message: msgForeignKeyConflict,
		}
	case errors.Is(err, pkgdb.ErrDuplicateKey):
		return http.StatusConflict, errorPayload{
			Type:    "integrity_conflict",
			Message: msgDuplicateKey,
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, pkgdb.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "store_unavailable",
			Message: msgStoreUnavailable,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	businessdomain.ErrInvalidName,
	catalogdomain.ErrInvalidSerialNumber,
	catalogdomain.ErrInvalidTypeName,
	catalogdomain.ErrInvalidOwner,
	catalogdomain.ErrInvalidCriticalAmount,
	orderdomain.ErrInvalidClient,
	orderdomain.ErrInvalidSupplier,
	orderdomain.ErrInvalidTypeName,
	orderdomain.ErrInvalidQuantity,
	orderdomain.ErrInvalidDateRange,
	orderdomain.ErrDuplicateType,
	orderdomain.ErrEmptyOrder,
	allocationdomain.ErrInvalidSerialNumber,
	allocationdomain.ErrBatchTooLarge,
	fulfillmentdomain.ErrInvalidTargetOwner,
}

var conflictErrors = []error{
	catalogdomain.ErrUnitReserved,
	orderdomain.ErrOrderCompleted,
	allocationdomain.ErrReservationConflict,
	allocationdomain.ErrQuantityExceeded,
	fulfillmentdomain.ErrUnitNotAvailable,
}

func isValidationError(err error) bool {
	return matchesAny(err, validationErrors)
}

func isConflictError(err error) bool {
	return matchesAny(err, conflictErrors)
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, catalogdomain.ErrUnitReserved):
		return "unit is reserved by an order"
	case errors.Is(err, orderdomain.ErrOrderCompleted):
		return "order is already completed"
	case errors.Is(err, allocationdomain.ErrReservationConflict):
		return "units are no longer available for this order, plan again"
	case errors.Is(err, allocationdomain.ErrQuantityExceeded):
		return "reservation exceeds the ordered quantity"
	case errors.Is(err, fulfillmentdomain.ErrUnitNotAvailable):
		return "unit cannot be handed over for this order"
	default:
		return "conflict"
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	switch code {
	case "duplicate_type":
		return "type_name"
	case "empty_order", "batch_too_large":
		return "items"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "duplicate_type":
		return "type listed more than once"
	case "empty_order":
		return "order needs at least one line item"
	case "batch_too_large":
		return "too many serial numbers in one request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog returns the error type and code logged with a failed
// request.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
