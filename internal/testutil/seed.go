package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Unit describes a product row for seeding.
type Unit struct {
	Serial     string
	Type       string
	Owner      string
	Producent  string
	Model      string
	Functional bool
	Order      *int64
}

func SeedBusiness(t testing.TB, conn *gorm.DB, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, conn.Exec("INSERT INTO businesses (name, is_service) VALUES (?, ?)", name, false).Error)
	}
}

// SeedUnits inserts products directly, creating missing critical-level rows
// the way intake does.
func SeedUnits(t testing.TB, conn *gorm.DB, units ...Unit) {
	t.Helper()
	for _, u := range units {
		require.NoError(t, conn.Exec(
			"INSERT INTO products (serial_number, type_name, owner_id, producent, model, product_condition, appear_in_order) VALUES (?, ?, ?, ?, ?, ?, ?)",
			u.Serial, u.Type, u.Owner, u.Producent, u.Model, u.Functional, u.Order,
		).Error)
		require.NoError(t, conn.Exec(
			"INSERT INTO critical_levels (business, type_name) SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM critical_levels WHERE business = ? AND type_name = ?)",
			u.Owner, u.Type, u.Owner, u.Type,
		).Error)
	}
}

// SeedOrder inserts an open order with the given line items (type -> quantity).
func SeedOrder(t testing.TB, conn *gorm.DB, id int64, client, supplier string, items map[string]int) {
	t.Helper()
	require.NoError(t, conn.Exec(
		"INSERT INTO orders (order_id, client_id, supplier_id, order_date) VALUES (?, ?, ?, ?)",
		id, client, supplier, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	).Error)
	for typeName, qty := range items {
		require.NoError(t, conn.Exec(
			"INSERT INTO specific_orders (order_id, type_name, quantity) VALUES (?, ?, ?)",
			id, typeName, qty,
		).Error)
	}
}

func SetCriticalAmount(t testing.TB, conn *gorm.DB, business, typeName string, amount int64) {
	t.Helper()
	require.NoError(t, conn.Exec(
		"UPDATE critical_levels SET critical_amount = ? WHERE business = ? AND type_name = ?",
		amount, business, typeName,
	).Error)
}

func Int64(v int64) *int64 { return &v }
