package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// WelchTTest performs Welch's unequal-variance t-test between two samples.
// Returns the t statistic and the two-sided p-value. Both are NaN when either
// group has fewer than 2 observations or the pooled standard error is zero;
// an undefined result is an expected output, not an error.
func WelchTTest(x, y []float64) (t, p float64) {
	nx := float64(len(x))
	ny := float64(len(y))
	if nx < 2 || ny < 2 {
		return math.NaN(), math.NaN()
	}

	vx := Variance(x)
	vy := Variance(y)
	se2 := vx/nx + vy/ny
	if se2 == 0 {
		return math.NaN(), math.NaN()
	}

	t = (Mean(x) - Mean(y)) / math.Sqrt(se2)

	// Welch-Satterthwaite degrees of freedom
	num := se2 * se2
	den := (vx/nx)*(vx/nx)/(nx-1) + (vy/ny)*(vy/ny)/(ny-1)
	if den == 0 {
		return t, math.NaN()
	}
	df := num / den

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(t))
	return t, p
}

// OneWayANOVA performs a one-way analysis of variance across the given
// groups. Returns the F statistic and p-value, both NaN when fewer than 2
// groups are present, residual degrees of freedom run out, or the
// within-group variance is zero.
func OneWayANOVA(groups [][]float64) (f, p float64) {
	k := len(groups)
	if k < 2 {
		return math.NaN(), math.NaN()
	}

	var all []float64
	for _, g := range groups {
		all = append(all, g...)
	}
	n := len(all)
	if n <= k {
		return math.NaN(), math.NaN()
	}

	grandMean := Mean(all)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		if len(g) == 0 {
			return math.NaN(), math.NaN()
		}
		groupMean := Mean(g)
		diff := groupMean - grandMean
		ssBetween += float64(len(g)) * diff * diff
		for _, v := range g {
			d := v - groupMean
			ssWithin += d * d
		}
	}

	dfBetween := float64(k - 1)
	dfWithin := float64(n - k)
	msWithin := ssWithin / dfWithin
	if msWithin == 0 {
		return math.NaN(), math.NaN()
	}

	f = (ssBetween / dfBetween) / msWithin

	dist := distuv.F{D1: dfBetween, D2: dfWithin}
	p = dist.Survival(f)
	return f, p
}
