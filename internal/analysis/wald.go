package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Phi is the golden ratio (1+√5)/2, the reference value of the intercept test.
var Phi = (1 + math.Sqrt(5)) / 2

// DefaultAlpha is the significance level of the intercept test.
const DefaultAlpha = 0.05

// WaldResult is a single-parameter Wald test of H0: estimate = reference.
type WaldResult struct {
	Estimate    float64
	SE          float64
	Reference   float64
	Alpha       float64
	T           float64
	P           float64
	Significant bool
}

// WaldTest compares est against ref using a normal reference distribution:
// t = (est − ref)/se and p = 2(1 − Φ(|t|)). The result is significant when
// p < alpha. The function is pure; equal inputs give bit-identical output.
func WaldTest(est, se, ref, alpha float64) WaldResult {
	t := (est - ref) / se
	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(t)))
	return WaldResult{
		Estimate:    est,
		SE:          se,
		Reference:   ref,
		Alpha:       alpha,
		T:           t,
		P:           p,
		Significant: p < alpha,
	}
}

// Text renders the test block of a report section for quantile q of dependent.
func (w WaldResult) Text(q float64, dependent string) string {
	var b strings.Builder
	b.WriteString("Test shody referenční skupiny se zlatým řezem (Waldův test):\n")
	fmt.Fprintf(&b, "H0: Q_%s(%s) = φ\n", formatQuantile(q), dependent)
	fmt.Fprintf(&b, "Odhad interceptu: %.4f\n", w.Estimate)
	fmt.Fprintf(&b, "t-statistika: %.3f\n", w.T)
	fmt.Fprintf(&b, "p-hodnota: %.4f\n", w.P)
	if w.Significant {
		b.WriteString("→ H0 zamítáme: kvantil se významně liší od φ.\n\n")
	} else {
		b.WriteString("→ H0 nezamítáme: kvantil se statisticky neliší od φ.\n\n")
	}
	return b.String()
}
