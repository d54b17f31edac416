package report

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const Currency = money.USD

// Amount formats v in the report currency, e.g. "$125,000.50".
func Amount(v float64) string {
	cur := money.GetCurrency(Currency)
	minor := decimal.NewFromFloat(v).Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), Currency).Display()
}

// SignedAmount prefixes gains with "+".
func SignedAmount(v float64) string {
	if v > 0 {
		return "+" + Amount(v)
	}
	return Amount(v)
}

func Percent(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func Volume(v int64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", float64(v)/1e9)
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(v)/1e6)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", float64(v)/1e3)
	}
	return fmt.Sprintf("%d", v)
}

// Arrow marks the direction of a change.
func Arrow(v float64) string {
	switch {
	case v > 0:
		return "▲"
	case v < 0:
		return "▼"
	}
	return "■"
}

func Title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
