package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	catalogrepository "github.com/smallbiznis/stockroute/internal/catalog/repository"
	"github.com/smallbiznis/stockroute/internal/observability/metrics"
	orderrepository "github.com/smallbiznis/stockroute/internal/order/repository"
	"github.com/smallbiznis/stockroute/internal/stock/domain"
	"github.com/smallbiznis/stockroute/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, prometheus.Gatherer) {
	conn := testutil.OpenDB(t)
	testutil.SeedBusiness(t, conn, "Acme", "Bob")

	registry := prometheus.NewRegistry()
	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		CatalogRepo: catalogrepository.Provide(),
		OrderRepo:   orderrepository.Provide(),
		Metrics:     metrics.NewEngineMetrics(registry, metrics.Config{Environment: "test"}),
	})
	return svc, conn, registry
}

// seedCables gives Acme ten cables, the first seven functional.
func seedCables(t *testing.T, conn *gorm.DB) {
	for i := 1; i <= 10; i++ {
		testutil.SeedUnits(t, conn, testutil.Unit{
			Serial:     fmt.Sprintf("CBL-%02d", i),
			Type:       "cable",
			Owner:      "Acme",
			Producent:  "Belden",
			Model:      "Cat6",
			Functional: i <= 7,
		})
	}
}

func TestStatisticsAcmeScenario(t *testing.T) {
	svc, conn, registry := newTestService(t)
	ctx := context.Background()

	seedCables(t, conn)
	testutil.SetCriticalAmount(t, conn, "Acme", "cable", 5)
	testutil.SeedOrder(t, conn, 42, "Bob", "Acme", map[string]int{"cable": 4})
	require.NoError(t, conn.Exec(
		"UPDATE products SET appear_in_order = ? WHERE serial_number IN ?",
		42, []string{"CBL-01", "CBL-02", "CBL-03", "CBL-04"},
	).Error)

	stats, err := svc.Statistics(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, stats, 1)

	row := stats[0]
	assert.Equal(t, "cable", row.TypeName)
	assert.EqualValues(t, 10, row.Total)
	assert.EqualValues(t, 7, row.Functional)
	assert.EqualValues(t, 4, row.Reserved)
	assert.EqualValues(t, 4, row.Ordered)
	require.NotNil(t, row.CriticalAmount)
	assert.EqualValues(t, 5, *row.CriticalAmount)
	assert.False(t, row.BelowCritical)

	assert.Zero(t, testutil.GaugeValue(t, registry, "stockroute_critical_breach", nil))
}

func TestStatisticsBreach(t *testing.T) {
	svc, conn, registry := newTestService(t)
	ctx := context.Background()

	seedCables(t, conn)
	testutil.SeedUnits(t, conn, testutil.Unit{Serial: "RT-1", Type: "router", Owner: "Acme", Functional: true})
	testutil.SetCriticalAmount(t, conn, "Acme", "cable", 8)

	stats, err := svc.Statistics(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "cable", stats[0].TypeName)
	assert.True(t, stats[0].BelowCritical)
	assert.Equal(t, "router", stats[1].TypeName)
	assert.Nil(t, stats[1].CriticalAmount)
	assert.False(t, stats[1].BelowCritical)
	assert.Zero(t, stats[1].Ordered)

	cable := map[string]string{"business": "Acme", "type": "cable"}
	assert.Equal(t, 1.0, testutil.GaugeValue(t, registry, "stockroute_critical_breach", cable))

	// repeated reads report the state, they do not accumulate
	_, err = svc.Statistics(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.GaugeValue(t, registry, "stockroute_critical_breach", cable))

	testutil.SetCriticalAmount(t, conn, "Acme", "cable", 7)
	stats, err = svc.Statistics(ctx, "Acme")
	require.NoError(t, err)
	assert.False(t, stats[0].BelowCritical)
	assert.Zero(t, testutil.GaugeValue(t, registry, "stockroute_critical_breach", cable))
}

func TestStatisticsUnknownBusiness(t *testing.T) {
	svc, _, _ := newTestService(t)

	stats, err := svc.Statistics(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, stats)
	assert.Empty(t, stats)
}

func TestExpandTypes(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	seedCables(t, conn)
	testutil.SeedUnits(t, conn,
		testutil.Unit{Serial: "RT-1", Type: "router", Owner: "Acme", Functional: true},
		testutil.Unit{Serial: "SW-1", Type: "switch", Owner: "Acme", Functional: true},
	)
	testutil.SetCriticalAmount(t, conn, "Acme", "cable", 5)
	testutil.SeedOrder(t, conn, 42, "Bob", "Acme", map[string]int{"cable": 4, "router": 1})
	testutil.SeedOrder(t, conn, 43, "Bob", "Acme", map[string]int{"cable": 2})

	got, err := svc.ExpandTypes(ctx, "Acme", []string{"router", "cable", " cable ", "hub"})
	require.NoError(t, err)

	assert.Len(t, got.Units, 11)
	assert.Equal(t, "cable", got.Units[0].TypeName)
	assert.Equal(t, "RT-1", got.Units[10].SerialNumber)
	assert.Equal(t, domain.ExpansionSummary{TotalOrdered: 7, OnWarehouse: 11, Functional: 8}, got.Summary)

	require.Len(t, got.TypeStats, 3)
	cable := got.TypeStats[0]
	assert.Equal(t, "cable", cable.TypeName)
	assert.EqualValues(t, 6, cable.TotalOrdered)
	assert.EqualValues(t, 10, cable.OnWarehouse)
	assert.EqualValues(t, 7, cable.Functional)
	require.NotNil(t, cable.CriticalAmount)
	assert.EqualValues(t, 5, *cable.CriticalAmount)

	hub := got.TypeStats[1]
	assert.Equal(t, domain.TypeSummary{TypeName: "hub"}, hub)

	raw, err := json.Marshal(got.Summary)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Total ordered amount":7,"All amount on warehouse":11,"Amount of functional":8}`, string(raw))
}

func TestExpandTypesEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)

	got, err := svc.ExpandTypes(context.Background(), "Acme", nil)
	require.NoError(t, err)
	assert.Empty(t, got.Units)
	assert.Empty(t, got.TypeStats)
	assert.Equal(t, domain.ExpansionSummary{}, got.Summary)
}
