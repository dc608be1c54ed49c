package extract

import (
	"math"
	"sort"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"gonum.org/v1/gonum/stat"
)

// MetricsCalculator derives per-vowel statistics from extracted tokens.
type MetricsCalculator struct {
	logger logging.Logger
}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator(logger logging.Logger) *MetricsCalculator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &MetricsCalculator{
		logger: logger,
	}
}

// DurationStats summarises the segment durations (ms) and formants of one
// vowel.
type DurationStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean_ms"`
	Median float64 `json:"median_ms"`
	P95    float64 `json:"p95_ms"`
	Min    float64 `json:"min_ms"`
	Max    float64 `json:"max_ms"`
	StdDev float64 `json:"std_dev_ms"`
	MeanF1 float64 `json:"mean_f1"`
	MeanF2 float64 `json:"mean_f2"`
}

// VowelStats groups tokens by vowel label.
func (mc *MetricsCalculator) VowelStats(tokens []Token) map[string]*DurationStats {
	durations := make(map[string][]float64)
	f1s := make(map[string][]float64)
	f2s := make(map[string][]float64)
	for _, tok := range tokens {
		durations[tok.Seg] = append(durations[tok.Seg], float64(tok.SegDur))
		f1s[tok.Seg] = append(f1s[tok.Seg], tok.F1)
		f2s[tok.Seg] = append(f2s[tok.Seg], tok.F2)
	}

	out := make(map[string]*DurationStats, len(durations))
	for vowel, d := range durations {
		s := mc.calculateStats(d)
		s.MeanF1 = stat.Mean(f1s[vowel], nil)
		s.MeanF2 = stat.Mean(f2s[vowel], nil)
		out[vowel] = mc.sanitizeStats(s)
	}

	mc.logger.Debug("Calculated vowel statistics", logging.Fields{
		"vowels": len(out),
		"tokens": len(tokens),
	})

	return out
}

// calculateStats calculates statistical measures for a dataset
func (mc *MetricsCalculator) calculateStats(data []float64) *DurationStats {
	if len(data) == 0 {
		return &DurationStats{Count: 0}
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	return &DurationStats{
		Count:  len(data),
		Mean:   mean,
		Median: stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		P95:    stat.Quantile(0.95, stat.LinInterp, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: std,
	}
}

// sanitizeStats replaces NaN and infinite values so the stats serialise.
func (mc *MetricsCalculator) sanitizeStats(stats *DurationStats) *DurationStats {
	for _, v := range []*float64{
		&stats.Mean, &stats.Median, &stats.P95, &stats.Min, &stats.Max,
		&stats.StdDev, &stats.MeanF1, &stats.MeanF2,
	} {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
		}
	}
	return stats
}
