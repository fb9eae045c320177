package businessflow

import (
	"strconv"
	"strings"

	"github.com/wbtools/tariffs-keeper/metrics"
)

// NormalizeDecimal converts an upstream free-text numeric field into a
// canonical decimal string. The function is total: empty, whitespace-only
// and lone-dash inputs become "0", commas become periods, and everything
// else passes through verbatim. Magnitude validation is left to storage.
func NormalizeDecimal(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return "0"
	}
	return strings.ReplaceAll(s, ",", ".")
}

// ParseCoefficientExpr parses a WB coefficient expression into a float.
// Unparseable expressions yield 0 rather than an error; that sentinel is
// part of the contract and counted so data-quality regressions upstream
// stay visible.
func ParseCoefficientExpr(expr string) float64 {
	s := NormalizeDecimal(expr)
	if s == "0" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		metrics.RecordCoefficientParseFailure()
		return 0
	}
	return v
}
