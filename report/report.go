// Package report renders the dashboard, stock, portfolio and report views
// as markdown. The CLI prints it through glamour and the web dashboard
// converts it with goldmark.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"istock.com/dto"
	"istock.com/types"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("report").Funcs(template.FuncMap{
	"money":  Amount,
	"signed": SignedAmount,
	"pct":    Percent,
	"volume": Volume,
	"arrow":  Arrow,
	"title":  Title,
	"demo":   func() string { return DemoNotice },
	"stamp":  func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}).ParseFS(templateFS, "templates/*.md.tmpl"))

type Dashboard struct {
	User        string
	Summary     dto.PortfolioSummary
	Market      dto.MarketOverview
	Demo        bool
	Notice      string
	GeneratedAt time.Time
}

type StockList struct {
	Stocks   []types.Stock
	Total    int
	Filter   Filter
	Selected *types.Stock
	Demo     bool
	Notice   string
}

type Portfolio struct {
	Summary dto.PortfolioSummary
	Details []dto.PortfolioDetail
	Demo    bool
	Notice  string
}

type Full struct {
	Dashboard   Dashboard
	Portfolio   Portfolio
	Stocks      StockList
	GeneratedAt time.Time
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func RenderDashboard(d Dashboard) (string, error) { return render("dashboard", d) }

func RenderStocks(s StockList) (string, error) { return render("stocks", s) }

func RenderPortfolio(p Portfolio) (string, error) { return render("portfolio", p) }

func RenderFull(f Full) (string, error) { return render("report", f) }
