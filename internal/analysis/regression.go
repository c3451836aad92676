package analysis

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/ratiostat-cli/internal/dataset"
	"github.com/KaramelBytes/ratiostat-cli/internal/regress"
)

// RegressionSignificance fits dependent ~ regressors by OLS. Numeric
// regressors enter as-is; every other column is treatment coded.
func RegressionSignificance(ds *dataset.Dataset, dependent string, regressors []string) (*regress.OLSResult, int, error) {
	if dependent == "" || len(regressors) == 0 {
		return nil, 0, fmt.Errorf("regression significance test needs a dependent column and at least one regressor")
	}
	if err := ds.Require(append([]string{dependent}, regressors...)...); err != nil {
		return nil, 0, err
	}
	data := ds.Clone()
	for _, r := range regressors {
		if c, _ := data.Column(r); c.Kind != dataset.KindNumeric {
			if err := data.AsCategorical(r); err != nil {
				return nil, 0, err
			}
		}
	}
	design, err := regress.BuildDesign(data, regress.Formula{Dependent: dependent, Terms: regressors})
	if err != nil {
		return nil, 0, err
	}
	res, err := regress.OLS(design)
	if err != nil {
		return nil, 0, err
	}
	return res, design.Dropped, nil
}

// RegressionReport renders the OLS summary followed by the test decisions.
func RegressionReport(res *regress.OLSResult, alpha float64) string {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	var b strings.Builder
	b.WriteString("TEST VÝZNAMNOSTI REGRESE\n")
	b.WriteString("========================\n\n")
	fmt.Fprintf(&b, "Regresní formule: %s\n\n", res.Formula)
	b.WriteString(res.Summary())
	b.WriteString("\n")

	fmt.Fprintf(&b, "Celkový F-test (H0: všechny koeficienty kromě interceptu jsou nulové):\n")
	fmt.Fprintf(&b, "F = %.4f, p-hodnota: %.4f\n", res.FValue, res.FPValue)
	if res.FPValue < alpha {
		b.WriteString("→ H0 zamítáme: regrese je jako celek významná.\n\n")
	} else {
		b.WriteString("→ H0 nezamítáme: regrese není jako celek významná.\n\n")
	}

	b.WriteString("Dílčí t-testy (H0: koeficient = 0):\n")
	for i, t := range res.Terms {
		verdict := "nevýznamný"
		if res.PValues[i] < alpha {
			verdict = "významný"
		}
		fmt.Fprintf(&b, "- %s: t = %.3f, p = %.4f → %s\n", t, res.TValues[i], res.PValues[i], verdict)
	}
	return b.String()
}
