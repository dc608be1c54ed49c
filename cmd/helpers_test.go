package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceTimer(t *testing.T) {
	timer := NewPerformanceTimer()
	timer.StartEvent("load_tables")
	time.Sleep(2 * time.Millisecond)
	timer.EndEvent("load_tables")
	timer.StartEvent("fit")
	timer.EndEvent("fit")
	timer.EndEvent("never_started")

	assert.Equal(t, []string{"load_tables", "fit"}, timer.Events())
	assert.GreaterOrEqual(t, timer.GetDuration("load_tables"), 2*time.Millisecond)
	assert.Zero(t, timer.GetDuration("never_started"))
	assert.GreaterOrEqual(t, timer.GetTotalDuration(), timer.GetDuration("load_tables"))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567", formatCount(1234567))
	assert.Equal(t, "12", formatCount(12))
	assert.Equal(t, "Load Tables", humanLabel("load_tables"))
	assert.Equal(t, "Base", humanLabel("base"))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
}

func TestCommandTree(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"extract", "filter", "lexicon", "inventory", "count", "model", "plot", "export", "config"} {
		assert.True(t, names[want], want)
	}

	sub, _, err := rootCmd.Find([]string{"inventory", "summary"})
	require.NoError(t, err)
	assert.Equal(t, "summary", sub.Name())

	sub, _, err = rootCmd.Find([]string{"plot", "ellipses"})
	require.NoError(t, err)
	assert.Equal(t, "ellipses", sub.Name())
}

func TestArgumentCounts(t *testing.T) {
	assert.Error(t, extractCmd.Args(extractCmd, []string{"corpus", "de", "1"}))
	assert.NoError(t, extractCmd.Args(extractCmd, []string{"corpus", "de", "1", "out"}))
	assert.Error(t, exportCmd.Args(exportCmd, []string{"db"}))
	assert.NoError(t, exportCmd.Args(exportCmd, []string{"db", "out/filtered"}))
}
