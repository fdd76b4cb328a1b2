package s2_signals

import (
	"math"
	"sort"
)

// Cross-sectional post-processing
// NaN = 미정의 값, 모든 단계에서 NaN은 그대로 통과

// Quantile returns the linearly interpolated q-quantile of the defined values
func Quantile(values []float64, q float64) float64 {
	defined := definedSorted(values)
	if len(defined) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return defined[0]
	}
	if q >= 1 {
		return defined[len(defined)-1]
	}

	pos := q * float64(len(defined)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return defined[lo] + (defined[hi]-defined[lo])*frac
}

// Winsorize clips defined values to the [lower, upper] empirical quantiles
func Winsorize(values []float64, lower, upper float64) []float64 {
	out := make([]float64, len(values))
	lo, hi := Quantile(values, lower), Quantile(values, upper)
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = v
		case v < lo:
			out[i] = lo
		case v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}

// Standardize converts defined values to z-scores using the sample std.
// A zero-variance cross-section maps every defined value to zero.
func Standardize(values []float64) []float64 {
	out := make([]float64, len(values))
	mean, std := meanStd(values)
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = v
		case std == 0 || math.IsNaN(std):
			out[i] = 0
		default:
			out[i] = (v - mean) / std
		}
	}
	return out
}

// PercentileRank ranks defined values ascending with average ranks for ties,
// scaled to avg_rank / n × 100 where n is the number of defined values.
func PercentileRank(values []float64) []float64 {
	out := make([]float64, len(values))

	idx := make([]int, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		idx = append(idx, i)
	}
	n := len(idx)
	if n == 0 {
		return out
	}

	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	for start := 0; start < n; {
		end := start + 1
		for end < n && values[idx[end]] == values[idx[start]] {
			end++
		}
		// 동점: 평균 순위 (1-based)
		avg := float64(start+1+end) / 2
		for k := start; k < end; k++ {
			out[idx[k]] = avg / float64(n) * 100
		}
		start = end
	}
	return out
}

func definedSorted(values []float64) []float64 {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	sort.Float64s(defined)
	return defined
}

// meanStd returns the mean and sample (n-1) std of the defined values
func meanStd(values []float64) (float64, float64) {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	mean := sum / float64(n)
	if n < 2 {
		return mean, 0
	}

	ss := 0.0
	for _, v := range values {
		if !math.IsNaN(v) {
			ss += (v - mean) * (v - mean)
		}
	}
	return mean, math.Sqrt(ss / float64(n-1))
}
