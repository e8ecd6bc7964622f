package fairness

import (
	"errors"
	"math"
	"testing"

	"biasclean/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain(" Justice ")
	require.NoError(t, err)
	assert.Equal(t, DomainJustice, d)

	_, err = ParseDomain("retail")
	assert.True(t, errors.Is(err, core.ErrUnknownDomain))
}

func TestDomains_AllHaveSevenWeights(t *testing.T) {
	domains := Domains()
	require.Len(t, domains, 7)

	for _, d := range domains {
		table, err := d.DefaultWeights()
		require.NoError(t, err, d)
		assert.Equal(t, 7, table.Len(), d)
		assert.InDelta(t, 1.0, table.Total(), 1e-9, "domain %s weights should sum to 1", d)
	}
}

func TestNewWeightTable_Validation(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []AttributeWeight
		wantErr error
	}{
		{"unknown attribute", []AttributeWeight{{"ShoeSize", 0.2}}, core.ErrUnknownAttribute},
		{"duplicate", []AttributeWeight{{AttrGender, 0.2}, {AttrGender, 0.1}}, core.ErrDuplicateAttribute},
		{"negative", []AttributeWeight{{AttrGender, -0.1}}, core.ErrInvalidWeight},
		{"above one", []AttributeWeight{{AttrGender, 1.5}}, core.ErrInvalidWeight},
		{"nan", []AttributeWeight{{AttrGender, math.NaN()}}, core.ErrInvalidWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWeightTable(DomainJustice, tt.pairs)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNewWeightTable_SortedByName(t *testing.T) {
	table, err := WeightTableFromMap(DomainJustice, map[string]float64{
		AttrRace: 0.25, AttrEthnicity: 0.25, AttrGender: 0.05,
	})
	require.NoError(t, err)

	require.Len(t, table.Entries, 3)
	assert.Equal(t, AttrEthnicity, table.Entries[0].Attribute)
	assert.Equal(t, AttrGender, table.Entries[1].Attribute)
	assert.Equal(t, AttrRace, table.Entries[2].Attribute)
	assert.Equal(t, 0.05, table.Weight(AttrGender))
	assert.Equal(t, 0.0, table.Weight(AttrAge))
}

func TestAuthoritative_UniformFallback(t *testing.T) {
	table, err := WeightTableFromMap(DomainHealth, map[string]float64{AttrGender: 0, AttrAge: 0})
	require.NoError(t, err)

	resolved, ok := table.Authoritative()
	assert.False(t, ok)
	assert.Equal(t, 0.5, resolved.Weight(AttrGender))
	assert.Equal(t, 0.5, resolved.Weight(AttrAge))

	normal, ok := resolved.Authoritative()
	assert.True(t, ok)
	assert.Equal(t, resolved, normal)
}

func TestRunConfig_Validate(t *testing.T) {
	cfg := DefaultRunConfig("two_year_recid")
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.MaxIterations = 0
	assert.True(t, errors.Is(bad.Validate(), core.ErrInvalidRunConfig))

	bad = cfg
	bad.Objective = "greedy"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Strategies = []Strategy{StrategyBalanced, StrategyBalanced}
	assert.Error(t, bad.Validate())

	inf := cfg
	inf.Epsilon = math.Inf(1)
	assert.NoError(t, inf.Validate())
}

func TestStrategyByName(t *testing.T) {
	s, ok := StrategyByName("Aggressive")
	require.True(t, ok)
	assert.Equal(t, 0.25, s.RemovalShare)

	_, ok = StrategyByName("reckless")
	assert.False(t, ok)
}
