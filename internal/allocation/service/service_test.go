package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/stockroute/internal/allocation/domain"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
	catalogrepository "github.com/smallbiznis/stockroute/internal/catalog/repository"
	"github.com/smallbiznis/stockroute/internal/config"
	"github.com/smallbiznis/stockroute/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/stockroute/internal/order/domain"
	orderrepository "github.com/smallbiznis/stockroute/internal/order/repository"
	"github.com/smallbiznis/stockroute/internal/testutil"
	pkgdb "github.com/smallbiznis/stockroute/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	order42 = snowflake.ID(42)
	order43 = snowflake.ID(43)
)

type fixture struct {
	svc      domain.Service
	conn     *gorm.DB
	registry *prometheus.Registry
}

func newFixture(t *testing.T) fixture {
	conn := testutil.OpenDB(t)
	testutil.SeedBusiness(t, conn, "Acme", "Bob", "Carol")

	registry := prometheus.NewRegistry()
	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		Engine:      config.NewStaticEngineConfigHolder(config.EngineConfig{MaxLineQuantity: 100, MaxReserveBatch: 10}),
		CatalogRepo: catalogrepository.Provide(),
		OrderRepo:   orderrepository.Provide(),
		Metrics:     metrics.NewEngineMetrics(registry, metrics.Config{Environment: "test"}),
	})
	return fixture{svc: svc, conn: conn, registry: registry}
}

// seedCables gives Acme CBL-01..CBL-10, the first seven functional.
func (f fixture) seedCables(t *testing.T) {
	for i := 1; i <= 10; i++ {
		testutil.SeedUnits(t, f.conn, testutil.Unit{
			Serial:     fmt.Sprintf("CBL-%02d", i),
			Type:       "cable",
			Owner:      "Acme",
			Functional: i <= 7,
		})
	}
}

func (f fixture) product(t *testing.T, serial string) *catalogdomain.Product {
	t.Helper()
	p, err := catalogrepository.Provide().FindBySerial(context.Background(), f.conn, serial)
	require.NoError(t, err)
	require.NotNil(t, p, serial)
	return p
}

func (f fixture) boundTo(t *testing.T, serial string) *snowflake.ID {
	t.Helper()
	return f.product(t, serial).AppearInOrder
}

func (f fixture) assertBound(t *testing.T, orderID snowflake.ID, serials ...string) {
	t.Helper()
	for _, serial := range serials {
		got := f.boundTo(t, serial)
		if assert.NotNil(t, got, serial) {
			assert.Equal(t, orderID, *got, serial)
		}
	}
}

func (f fixture) assertFree(t *testing.T, serials ...string) {
	t.Helper()
	for _, serial := range serials {
		assert.Nil(t, f.boundTo(t, serial), serial)
	}
}

func serialsOf(units []catalogdomain.Product) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.SerialNumber)
	}
	return out
}

func TestPlanAcmeScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCables(t)
	testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", map[string]int{"cable": 4})

	plan, err := f.svc.Plan(ctx, order42)
	require.NoError(t, err)
	assert.Equal(t, "Bob", plan.ClientID)
	assert.Equal(t, "Acme", plan.SupplierID)
	require.Len(t, plan.Lines, 1)

	line := plan.Lines[0]
	assert.Equal(t, "cable", line.TypeName)
	assert.EqualValues(t, 4, line.Requested)
	assert.EqualValues(t, 4, line.Allocated)
	assert.Zero(t, line.Shortfall)
	assert.EqualValues(t, 10, line.OnWarehouse)
	assert.EqualValues(t, 7, line.FreeFunctional)
	assert.Zero(t, line.Bound)
	assert.Equal(t, []string{"CBL-01", "CBL-02", "CBL-03", "CBL-04"}, serialsOf(line.Units))
	assert.True(t, plan.Satisfied())

	again, err := f.svc.Plan(ctx, order42)
	require.NoError(t, err)
	assert.Equal(t, plan, again)

	reserved, err := f.svc.Reserve(ctx, order42, plan.Serials())
	require.NoError(t, err)
	assert.EqualValues(t, 4, reserved)
	f.assertBound(t, order42, plan.Serials()...)

	after, err := f.svc.Plan(ctx, order42)
	require.NoError(t, err)
	assert.Equal(t, plan.Serials(), after.Serials())
	assert.EqualValues(t, 4, after.Lines[0].Bound)
	assert.EqualValues(t, 3, after.Lines[0].FreeFunctional)
}

func TestPlanKeepsUnitsBoundToOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", map[string]int{"cable": 4})
	testutil.SeedOrder(t, f.conn, 43, "Carol", "Acme", map[string]int{"cable": 1})
	testutil.SeedUnits(t, f.conn,
		testutil.Unit{Serial: "CBL-01", Type: "cable", Owner: "Acme", Functional: true, Order: testutil.Int64(43)},
		testutil.Unit{Serial: "CBL-02", Type: "cable", Owner: "Acme", Functional: true},
		testutil.Unit{Serial: "CBL-03", Type: "cable", Owner: "Acme", Functional: true},
		testutil.Unit{Serial: "CBL-04", Type: "cable", Owner: "Acme", Functional: true},
		testutil.Unit{Serial: "CBL-08", Type: "cable", Owner: "Acme", Functional: true, Order: testutil.Int64(42)},
		testutil.Unit{Serial: "CBL-09", Type: "cable", Owner: "Acme", Functional: true, Order: testutil.Int64(42)},
		testutil.Unit{Serial: "CBL-10", Type: "cable", Owner: "Bob", Functional: true},
	)

	plan, err := f.svc.Plan(ctx, order42)
	require.NoError(t, err)
	require.Len(t, plan.Lines, 1)
	assert.Equal(t, []string{"CBL-02", "CBL-03", "CBL-08", "CBL-09"}, serialsOf(plan.Lines[0].Units))
	assert.EqualValues(t, 2, plan.Lines[0].Bound)
	assert.EqualValues(t, 3, plan.Lines[0].FreeFunctional)
	assert.EqualValues(t, 6, plan.Lines[0].OnWarehouse)
}

func TestPlanShortfall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", map[string]int{"router": 5, "cable": 1})
	testutil.SeedUnits(t, f.conn,
		testutil.Unit{Serial: "CBL-01", Type: "cable", Owner: "Acme", Functional: true},
		testutil.Unit{Serial: "RT-1", Type: "router", Owner: "Acme", Functional: true},
		testutil.Unit{Serial: "RT-2", Type: "router", Owner: "Acme", Functional: true, Order: testutil.Int64(42)},
		testutil.Unit{Serial: "RT-3", Type: "router", Owner: "Acme", Functional: true},
		testutil.Unit{Serial: "RT-4", Type: "router", Owner: "Acme", Functional: false},
	)

	plan, err := f.svc.Plan(ctx, order42)
	require.NoError(t, err)
	require.Len(t, plan.Lines, 2)
	assert.False(t, plan.Satisfied())

	router := plan.Lines[1]
	assert.Equal(t, "router", router.TypeName)
	assert.EqualValues(t, 5, router.Requested)
	assert.EqualValues(t, 3, router.Allocated)
	assert.EqualValues(t, 2, router.Shortfall)
	assert.Equal(t, []string{"RT-1", "RT-2", "RT-3"}, serialsOf(router.Units))

	_, err = f.svc.Plan(ctx, order42)
	require.NoError(t, err)
	shortfalls := func(typeName string) float64 {
		return testutil.CounterValue(t, f.registry, "stockroute_allocation_shortfalls_total", map[string]string{"type": typeName})
	}
	assert.Zero(t, shortfalls("router"), "plan previews are not counted")

	reserved, err := f.svc.Reserve(ctx, order42, serialsOf(router.Units))
	require.NoError(t, err)
	assert.EqualValues(t, 3, reserved)
	f.assertBound(t, order42, "RT-1", "RT-2", "RT-3")
	f.assertFree(t, "RT-4", "CBL-01")
	assert.Equal(t, 1.0, shortfalls("router"))
	assert.Equal(t, 1.0, shortfalls("cable"))

	_, err = f.svc.Reserve(ctx, order42, []string{"CBL-01"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, shortfalls("router"))
	assert.Equal(t, 1.0, shortfalls("cable"))
}

func TestReserveStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.seedCables(t)
	testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", map[string]int{"cable": 4})
	sqlDB, err := f.conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = f.svc.Reserve(context.Background(), order42, []string{"CBL-01"})
	assert.ErrorIs(t, err, pkgdb.ErrStoreUnavailable)
	_, err = f.svc.Rebind(context.Background(), order42, []string{"CBL-01"})
	assert.ErrorIs(t, err, pkgdb.ErrStoreUnavailable)
	assert.Equal(t, 1.0, testutil.CounterValue(t, f.registry, "stockroute_store_errors_total",
		map[string]string{"operation": "reserve", "reason": metrics.StoreErrorReasonUnavailable}))
}

func TestPlanMissingOrCompletedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.Plan(ctx, snowflake.ID(999))
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(999), plan.OrderID)
	assert.Empty(t, plan.Lines)

	testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", nil)
	require.NoError(t, f.conn.Exec("UPDATE orders SET completion_date = order_date WHERE order_id = 42").Error)

	plan, err = f.svc.Plan(ctx, order42)
	require.NoError(t, err)
	assert.NotNil(t, plan.Lines)
	assert.Empty(t, plan.Lines)
}

func TestReserveRejectsUnsuitableUnits(t *testing.T) {
	tests := []struct {
		name   string
		serial string
	}{
		{name: "defective", serial: "CBL-08"},
		{name: "other owner", serial: "BOB-1"},
		{name: "type not ordered", serial: "RT-1"},
		{name: "unknown serial", serial: "NOPE"},
		{name: "bound to another order", serial: "CBL-07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.seedCables(t)
			testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", map[string]int{"cable": 3})
			testutil.SeedOrder(t, f.conn, 43, "Carol", "Acme", map[string]int{"cable": 1})
			require.NoError(t, f.conn.Exec("UPDATE products SET appear_in_order = 43 WHERE serial_number = 'CBL-07'").Error)
			testutil.SeedUnits(t, f.conn,
				testutil.Unit{Serial: "BOB-1", Type: "cable", Owner: "Bob", Functional: true},
				testutil.Unit{Serial: "RT-1", Type: "router", Owner: "Acme", Functional: true},
			)

			reserved, err := f.svc.Reserve(ctx, order42, []string{"CBL-01", tt.serial})
			assert.ErrorIs(t, err, domain.ErrReservationConflict)
			assert.Zero(t, reserved)
			f.assertFree(t, "CBL-01")
			assert.Equal(t, 1.0, testutil.CounterValue(t, f.registry, "stockroute_reservation_conflicts_total", nil))
		})
	}
}

func TestReserveGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCables(t)
	testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", map[string]int{"cable": 2})
	testutil.SeedOrder(t, f.conn, 43, "Bob", "Acme", map[string]int{"cable": 2})
	require.NoError(t, f.conn.Exec("UPDATE orders SET completion_date = order_date WHERE order_id = 43").Error)

	t.Run("quantity cap", func(t *testing.T) {
		_, err := f.svc.Reserve(ctx, order42, []string{"CBL-01", "CBL-02", "CBL-03"})
		assert.ErrorIs(t, err, domain.ErrQuantityExceeded)
		f.assertFree(t, "CBL-01", "CBL-02", "CBL-03")
	})

	t.Run("cap counts existing reservations", func(t *testing.T) {
		_, err := f.svc.Reserve(ctx, order42, []string{"CBL-01"})
		require.NoError(t, err)
		_, err = f.svc.Reserve(ctx, order42, []string{"CBL-02", "CBL-03"})
		assert.ErrorIs(t, err, domain.ErrQuantityExceeded)
		f.assertBound(t, order42, "CBL-01")
		f.assertFree(t, "CBL-02", "CBL-03")
	})

	t.Run("already bound to same order", func(t *testing.T) {
		reserved, err := f.svc.Reserve(ctx, order42, []string{"CBL-01", "CBL-02"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, reserved)
	})

	t.Run("completed order", func(t *testing.T) {
		_, err := f.svc.Reserve(ctx, order43, []string{"CBL-04"})
		assert.ErrorIs(t, err, orderdomain.ErrOrderCompleted)
	})

	t.Run("missing order", func(t *testing.T) {
		reserved, err := f.svc.Reserve(ctx, snowflake.ID(999), []string{"CBL-04"})
		require.NoError(t, err)
		assert.Zero(t, reserved)
		f.assertFree(t, "CBL-04")
	})

	t.Run("batch too large", func(t *testing.T) {
		serials := make([]string, 11)
		for i := range serials {
			serials[i] = fmt.Sprintf("X-%d", i)
		}
		_, err := f.svc.Reserve(ctx, order42, serials)
		assert.ErrorIs(t, err, domain.ErrBatchTooLarge)
	})

	t.Run("blank serial", func(t *testing.T) {
		_, err := f.svc.Reserve(ctx, order42, []string{" "})
		assert.ErrorIs(t, err, domain.ErrInvalidSerialNumber)
	})
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCables(t)
	testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", map[string]int{"cable": 1})
	testutil.SeedOrder(t, f.conn, 43, "Carol", "Acme", map[string]int{"cable": 1})

	orders := []snowflake.ID{order42, order43, order42, order43}
	errs := make([]error, len(orders))
	var wg sync.WaitGroup
	for i, id := range orders {
		wg.Add(1)
		go func(i int, id snowflake.ID) {
			defer wg.Done()
			_, errs[i] = f.svc.Reserve(ctx, id, []string{"CBL-01"})
		}(i, id)
	}
	wg.Wait()

	winner := f.boundTo(t, "CBL-01")
	require.NotNil(t, winner)
	for i, err := range errs {
		if orders[i] == *winner {
			assert.NoError(t, err)
			continue
		}
		assert.ErrorIs(t, err, domain.ErrReservationConflict)
	}
}

func TestRebind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCables(t)
	testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", map[string]int{"cable": 2})
	_, err := f.svc.Reserve(ctx, order42, []string{"CBL-01", "CBL-02"})
	require.NoError(t, err)

	result, err := f.svc.Rebind(ctx, order42, []string{"CBL-02", "CBL-03"})
	require.NoError(t, err)
	assert.Equal(t, domain.RebindResult{Released: 2, Reserved: 2}, result)
	f.assertBound(t, order42, "CBL-02", "CBL-03")
	f.assertFree(t, "CBL-01")

	_, err = f.svc.Rebind(ctx, order42, []string{"CBL-04", "CBL-09"})
	assert.ErrorIs(t, err, domain.ErrReservationConflict)
	f.assertBound(t, order42, "CBL-02", "CBL-03")
	f.assertFree(t, "CBL-04")

	result, err = f.svc.Rebind(ctx, order42, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RebindResult{Released: 2}, result)
	f.assertFree(t, "CBL-02", "CBL-03")
}

func TestReleaseAndCondition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCables(t)
	testutil.SeedOrder(t, f.conn, 42, "Bob", "Acme", map[string]int{"cable": 4})
	_, err := f.svc.Reserve(ctx, order42, []string{"CBL-01", "CBL-02", "CBL-03", "CBL-04"})
	require.NoError(t, err)

	released, err := f.svc.Release(ctx, []string{"CBL-01", "CBL-05"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, released)
	f.assertFree(t, "CBL-01")

	result, err := f.svc.ChangeState(ctx, domain.ChangeStateRequest{
		Release:   []string{"CBL-02"},
		Defective: []string{"CBL-03"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeStateResult{Released: 1, Defective: 1}, result)
	f.assertFree(t, "CBL-02")
	f.assertBound(t, order42, "CBL-03")
	assert.False(t, f.product(t, "CBL-03").Condition)

	affected, err := f.svc.SetCondition(ctx, []string{"CBL-03", "CBL-08"}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)
	assert.True(t, f.product(t, "CBL-08").Condition)

	released, err = f.svc.ReleaseAll(ctx, order42)
	require.NoError(t, err)
	assert.EqualValues(t, 2, released)
	f.assertFree(t, "CBL-03", "CBL-04")

	released, err = f.svc.ReleaseAll(ctx, snowflake.ID(999))
	require.NoError(t, err)
	assert.Zero(t, released)

	_, err = f.svc.ChangeState(ctx, domain.ChangeStateRequest{Release: []string{""}})
	assert.ErrorIs(t, err, domain.ErrInvalidSerialNumber)
}
