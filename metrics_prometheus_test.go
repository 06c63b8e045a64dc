package cvnet

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	pc, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	p, err := New(newFlakySource(), defaultConfig("CUT"), WithMetricsCollector(pc))
	require.NoError(t, err)
	_, err = p.Run(context.Background(), genomes, &bytes.Buffer{})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	phases := map[string]bool{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case "cvnet_tasks_total":
				var phase, outcome string
				for _, l := range m.GetLabel() {
					switch l.GetName() {
					case "phase":
						phase = l.GetValue()
					case "outcome":
						outcome = l.GetValue()
					}
				}
				counts[phase+"/"+outcome] += m.GetCounter().GetValue()
			case "cvnet_edges_total":
				counts["edges"] = m.GetCounter().GetValue()
			case "cvnet_phase_duration_seconds":
				for _, l := range m.GetLabel() {
					phases[l.GetValue()] = true
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{
		"cva/succeeded":   3,
		"pairs/succeeded": 3,
		"edges/succeeded": 3,
		"edges":           3,
	}, counts)
	assert.Equal(t, map[string]bool{PhaseCVA: true, PhasePairs: true, PhaseEdges: true}, phases)

	// A second run reuses every artifact.
	_, err = p.Run(context.Background(), genomes, &bytes.Buffer{})
	require.NoError(t, err)
	families, err = reg.Gather()
	require.NoError(t, err)
	var cached float64
	for _, mf := range families {
		if mf.GetName() != "cvnet_tasks_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == "cached" {
					cached += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(6), cached)

	_, err = NewPrometheusCollector(reg)
	assert.Error(t, err, "metrics are already registered")
}
