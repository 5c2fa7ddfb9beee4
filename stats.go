package gosensorcore

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics of a series. An empty Summary has
// Count 0 and NaN in every other field.
type Summary struct {
	Count int
	Mean  float64
	Std   float64 // sample standard deviation; NaN for a single value
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// Empty reports whether the summary was computed over no values.
func (s Summary) Empty() bool { return s.Count == 0 }

func emptySummary() Summary {
	nan := math.NaN()
	return Summary{Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
}

// Describe computes count, mean, standard deviation, min, quartiles and max.
// x is not modified.
func Describe(x []float64) Summary {
	if len(x) == 0 {
		return emptySummary()
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	s := Summary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Std:   math.NaN(),
		Min:   floats.Min(sorted),
		Max:   floats.Max(sorted),
		Q25:   quantile(0.25, sorted),
		Q50:   quantile(0.5, sorted),
		Q75:   quantile(0.75, sorted),
	}
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	return s
}

// quantile returns the p-quantile of the non-empty ascending slice sorted,
// interpolating linearly between closest ranks at h = (n-1)p.
func quantile(p float64, sorted []float64) float64 {
	h := float64(len(sorted)-1) * p
	i := int(math.Floor(h))
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-float64(i))*(sorted[i+1]-sorted[i])
}

// DescribeInt64 is Describe over integer samples such as nanosecond
// timestamps.
func DescribeInt64(x []int64) Summary {
	f := make([]float64, len(x))
	for i, v := range x {
		f[i] = float64(v)
	}
	return Describe(f)
}

// uniqueIntervals returns the successive differences of the distinct,
// sorted values of t.
func uniqueIntervals(t []int64) []float64 {
	sorted := append([]int64(nil), t...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var (
		diffs []float64
		prev  int64
	)
	for i, v := range sorted {
		if i > 0 && v == prev {
			continue
		}
		if i > 0 {
			diffs = append(diffs, float64(v-prev))
		}
		prev = v
	}
	return diffs
}
