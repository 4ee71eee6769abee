package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// CounterValue sums the counter samples of the named family whose labels
// include every pair in match. A family that was never written reads as 0.
func CounterValue(t testing.TB, gatherer prometheus.Gatherer, name string, match map[string]string) float64 {
	t.Helper()
	return sumSamples(t, gatherer, name, match, func(m *dto.Metric) float64 { return m.GetCounter().GetValue() })
}

// GaugeValue is CounterValue for gauge families.
func GaugeValue(t testing.TB, gatherer prometheus.Gatherer, name string, match map[string]string) float64 {
	t.Helper()
	return sumSamples(t, gatherer, name, match, func(m *dto.Metric) float64 { return m.GetGauge().GetValue() })
}

func sumSamples(t testing.TB, gatherer prometheus.Gatherer, name string, match map[string]string, value func(*dto.Metric) float64) float64 {
	t.Helper()

	families, err := gatherer.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if labelsMatch(m, match) {
				total += value(m)
			}
		}
	}
	return total
}

func labelsMatch(m *dto.Metric, match map[string]string) bool {
	found := 0
	for _, pair := range m.GetLabel() {
		if want, ok := match[pair.GetName()]; ok {
			if pair.GetValue() != want {
				return false
			}
			found++
		}
	}
	return found == len(match)
}
