package shared

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BalanceEpsilon is the tolerance used when comparing monetary sums.
const BalanceEpsilon = 0.01

var amountPrinter = message.NewPrinter(language.English)

// Round2 rounds a monetary amount to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NearlyEqual reports whether two monetary amounts match within BalanceEpsilon.
func NearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < BalanceEpsilon
}

// FormatAmount renders a monetary amount with thousands separators, e.g. "1,250.00".
func FormatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}
