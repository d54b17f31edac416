package report

import (
	"sort"
	"strings"

	"istock.com/types"
)

type Filter struct {
	Market   string
	Industry string
	Search   string
}

func (f Filter) Active() bool {
	return f.Market != "" || f.Industry != "" || strings.TrimSpace(f.Search) != ""
}

// FilterStocks keeps exact market and industry matches and a
// case-insensitive search on symbol or name.
func FilterStocks(stocks []types.Stock, f Filter) []types.Stock {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]types.Stock, 0, len(stocks))
	for _, s := range stocks {
		if f.Market != "" && s.Market != f.Market {
			continue
		}
		if f.Industry != "" && s.Industry != f.Industry {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Symbol), search) &&
			!strings.Contains(strings.ToLower(s.Name), search) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Options returns the distinct markets and industries, sorted.
func Options(stocks []types.Stock) (markets, industries []string) {
	seenM, seenI := map[string]bool{}, map[string]bool{}
	for _, s := range stocks {
		if s.Market != "" && !seenM[s.Market] {
			seenM[s.Market] = true
			markets = append(markets, s.Market)
		}
		if s.Industry != "" && !seenI[s.Industry] {
			seenI[s.Industry] = true
			industries = append(industries, s.Industry)
		}
	}
	sort.Strings(markets)
	sort.Strings(industries)
	return markets, industries
}
