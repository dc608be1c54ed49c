package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanSD(t *testing.T) {
	m, sd := MeanSD([]float64{1, 2, 3})
	assert.InDelta(t, 2, m, 1e-12)
	assert.InDelta(t, 1, sd, 1e-12)

	m, sd = MeanSD([]float64{4})
	assert.Equal(t, 4.0, m)
	assert.True(t, math.IsNaN(sd))

	m, _ = MeanSD(nil)
	assert.True(t, math.IsNaN(m))
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{5, 1, 3}, 3},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.values))
		})
	}
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestDropNaN(t *testing.T) {
	x, y := DropNaN([]float64{1, math.NaN(), 3, 4}, []float64{1, 2, math.NaN(), 4})
	assert.Equal(t, []float64{1, 4}, x)
	assert.Equal(t, []float64{1, 4}, y)
}

func TestLinRegressPerfectFit(t *testing.T) {
	reg, err := LinRegress([]float64{1, 2, 3, 4}, []float64{3, 5, 7, 9})
	require.NoError(t, err)
	assert.InDelta(t, 2, reg.Slope, 1e-9)
	assert.InDelta(t, 1, reg.Intercept, 1e-9)
	assert.InDelta(t, 1, reg.RSquared, 1e-9)
	assert.InDelta(t, 0, reg.PValue, 1e-9)
}

func TestLinRegress(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 5, 4, 5}
	reg, err := LinRegress(x, y)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, reg.Slope, 1e-9)
	assert.InDelta(t, 2.2, reg.Intercept, 1e-9)
	assert.InDelta(t, 0.6, reg.RSquared, 1e-9)
	assert.InDelta(t, 0.7745967, reg.R, 1e-6)
	assert.InDelta(t, 0.1240270, reg.PValue, 1e-5)
	assert.InDelta(t, 0.2828427, reg.StdErr, 1e-6)
}

func TestLinRegressErrors(t *testing.T) {
	_, err := LinRegress([]float64{1, 2}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = LinRegress([]float64{1, 2, 3}, []float64{1, 2})
	assert.Error(t, err)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.12, Round(0.125, 2))
	assert.Equal(t, 1.235, Round(1.2345678, 3))
	assert.Equal(t, 2.0, Round(2.5, 0))
}
