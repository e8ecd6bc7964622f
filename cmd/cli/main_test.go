package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasclean/domain/fairness"
	"biasclean/internal/config"
	"biasclean/internal/testkit"
)

func TestParseWeights(t *testing.T) {
	w, err := parseWeights(`{"Ethnicity":0.3,"Gender":0.1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Ethnicity": 0.3, "Gender": 0.1}, w)

	w, err = parseWeights("  ")
	require.NoError(t, err)
	assert.Nil(t, w)

	_, err = parseWeights(`[0.3]`)
	assert.Error(t, err)
}

func TestDomainsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newDomainsCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	for _, d := range fairness.Domains() {
		assert.Contains(t, out.String(), string(d))
	}
	assert.Contains(t, out.String(), fairness.AttrEthnicity)
}

func TestDemoRequest(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	req, err := demoRequest(cfg, "uk", "hiring", 200, 7)
	require.NoError(t, err)
	assert.Equal(t, "hiring", req.Domain)
	assert.Equal(t, 200, req.Dataset.Len())
	assert.Equal(t, testkit.ColOutcome, req.Config.OutcomeColumn)
	assert.Equal(t, int64(7), req.Config.Seed)
	assert.Nil(t, req.Weights)

	_, err = demoRequest(cfg, "uk", "astrology", 200, 7)
	assert.Error(t, err)

	_, err = demoRequest(cfg, "lottery", "", 0, 7)
	assert.Error(t, err)
}
