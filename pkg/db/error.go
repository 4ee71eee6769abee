package db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrForeignKeyConflict = errors.New("referenced record is still in use")
	ErrDuplicateKey       = errors.New("provided key already exists")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// Translate maps a driver failure onto the store error taxonomy. The original
// error stays reachable through errors.Is/As. Unclassified errors are returned
// unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrForeignKeyConflict) || errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}

	switch {
	case IsForeignKeyErr(err):
		return fmt.Errorf("%w: %w", ErrForeignKeyConflict, err)
	case IsDuplicateKeyErr(err):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case IsUnavailableErr(err):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	if code, ok := pgCode(err); ok {
		return code == "23505"
	}

	msg := err.Error()
	// PostgreSQL (error code 23505)
	if strings.Contains(msg, "duplicate key value violates unique constraint") {
		return true
	}
	// MySQL (error code 1062)
	if strings.Contains(msg, "Error 1062") {
		return true
	}
	// SQLite (error code 1555 / 2067)
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}

	return false
}

func IsForeignKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	if code, ok := pgCode(err); ok {
		return code == "23503"
	}

	msg := err.Error()
	if strings.Contains(msg, "violates foreign key constraint") {
		return true
	}
	// MySQL (1451 parent row, 1452 child row)
	if strings.Contains(msg, "Error 1451") || strings.Contains(msg, "Error 1452") {
		return true
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return true
	}

	return false
}

func IsUnavailableErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	if code, ok := pgCode(err); ok {
		switch {
		case strings.HasPrefix(code, "08"):
			return true
		case code == "57P01", code == "57P02", code == "57P03":
			return true
		}
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"connection refused",
		"server closed the connection",
		"broken pipe",
		"bad connection",
		"invalid connection",
		"sql: database is closed",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

func pgCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}
