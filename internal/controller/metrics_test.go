//go:build !nometrics

package controller

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchforge/rank_fusion/fuse"
	"github.com/searchforge/rank_fusion/internal/contract"
	"github.com/searchforge/rank_fusion/policy"
)

func sourceLabels(t *testing.T, family string) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	out := make(map[string]bool)
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "source" {
					out[lp.GetValue()] = true
				}
			}
		}
	}
	return out
}

func TestMetricsBoundSourceLabels(t *testing.T) {
	guard, err := policy.NewGuard(policy.GuardConfig{}, nil)
	require.NoError(t, err)
	ctrl, err := New(Config{
		Defaults: fuse.Options{
			Conflation:    fuse.ConflateWeightedSum,
			SourceWeights: map[string]float64{"bm25": 0.5},
		},
		Guard:         guard,
		MetricSources: []string{"dense"},
	})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		req := contract.Request{
			Lists:   []contract.List{{Source: fmt.Sprintf("unlisted-%d", i), Items: []fuse.Item{{Key: "x", Weight: 1}}}},
			Options: contract.Options{Conflation: "max"},
		}
		_, _, err := ctrl.Fuse(context.Background(), req)
		require.NoError(t, err)
	}
	_, _, err = ctrl.Fuse(context.Background(), contract.Request{
		Lists: []contract.List{
			{Source: "bm25", Items: []fuse.Item{{Key: "x", Weight: 1}}},
			{Source: "dense", Items: []fuse.Item{{Key: "x", Weight: 2}}},
		},
		Options: contract.Options{Conflation: "max"},
	})
	require.NoError(t, err)

	for _, family := range []string{"rank_fusion_list_items", "rank_fusion_degenerate_lists_total"} {
		labels := sourceLabels(t, family)
		assert.True(t, labels["other"], family)
		assert.True(t, labels["bm25"], family)
		assert.True(t, labels["dense"], family)
		for label := range labels {
			assert.False(t, strings.HasPrefix(label, "unlisted-"), "%s has series for %s", family, label)
		}
	}
}
