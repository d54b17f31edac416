package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"istock.com/report"
)

type dashboardCmd struct{ env *Env }

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "display the investment dashboard" }
func (*dashboardCmd) Usage() string {
	return `istock dashboard

  Displays the portfolio overview and the market indices. Demo data is shown
  when the API cannot be reached.
`
}
func (*dashboardCmd) SetFlags(*flag.FlagSet) {}

func (c *dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.env.requireLogin() {
		return subcommands.ExitFailure
	}
	view, err := c.env.loader(c.env.client()).Dashboard(ctx)
	if err != nil {
		return c.env.fail("loading the dashboard", err)
	}
	md, err := report.RenderDashboard(view)
	if err != nil {
		return c.env.fail("rendering the dashboard", err)
	}
	c.env.printMarkdown(md)
	return subcommands.ExitSuccess
}

type stocksCmd struct {
	env      *Env
	market   string
	industry string
	search   string
	show     string
}

func (*stocksCmd) Name() string     { return "stocks" }
func (*stocksCmd) Synopsis() string { return "list stocks with optional filters" }
func (*stocksCmd) Usage() string {
	return `istock stocks [-market <market>] [-industry <industry>] [-search <text>] [-show <symbol>]

  Lists the tracked stocks. Filters combine; -search matches symbol or name
  case-insensitively. -show adds the detail card of one symbol.
`
}

func (c *stocksCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.market, "market", "", "Only stocks of this market")
	f.StringVar(&c.industry, "industry", "", "Only stocks of this industry")
	f.StringVar(&c.search, "search", "", "Symbol or name contains this text")
	f.StringVar(&c.show, "show", "", "Symbol to show in detail")
}

func (c *stocksCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.env.requireLogin() {
		return subcommands.ExitFailure
	}
	f := report.Filter{Market: c.market, Industry: c.industry, Search: c.search}
	view, _, err := c.env.loader(c.env.client()).Stocks(ctx, f, c.show)
	if err != nil {
		return c.env.fail("loading stocks", err)
	}
	md, err := report.RenderStocks(view)
	if err != nil {
		return c.env.fail("rendering stocks", err)
	}
	c.env.printMarkdown(md)
	return subcommands.ExitSuccess
}

type portfolioCmd struct {
	env     *Env
	refresh bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "display holdings and performance" }
func (*portfolioCmd) Usage() string {
	return `istock portfolio [-refresh]

  Displays every holding with its market value and profit or loss.
  -refresh reprices the holdings from the latest quotes first.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.refresh, "refresh", false, "Reprice holdings before displaying")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.env.requireLogin() {
		return subcommands.ExitFailure
	}
	api := c.env.client()
	l := c.env.loader(api)

	if c.refresh {
		user, err := l.User(ctx)
		if err != nil {
			return c.env.fail("loading the user", err)
		}
		n, err := api.RefreshPortfolio(ctx, user.ID)
		if err != nil {
			return c.env.fail("refreshing prices", err)
		}
		fmt.Fprintf(c.env.Err, "Repriced %d holdings.\n", n)
	}

	view, err := l.Portfolio(ctx)
	if err != nil {
		return c.env.fail("loading the portfolio", err)
	}
	md, err := report.RenderPortfolio(view)
	if err != nil {
		return c.env.fail("rendering the portfolio", err)
	}
	c.env.printMarkdown(md)
	return subcommands.ExitSuccess
}

type reportCmd struct {
	env    *Env
	output string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "generate the full markdown report" }
func (*reportCmd) Usage() string {
	return `istock report [-o <file.md>]

  Combines the dashboard, portfolio and stock list in one report. With -o
  the raw markdown is written to a file instead of the terminal.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Write the markdown to this file")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.env.requireLogin() {
		return subcommands.ExitFailure
	}
	full, err := c.env.loader(c.env.client()).Full(ctx)
	if err != nil {
		return c.env.fail("loading the report", err)
	}
	md, err := report.RenderFull(full)
	if err != nil {
		return c.env.fail("rendering the report", err)
	}
	if c.output == "" {
		c.env.printMarkdown(md)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(c.output, []byte(md), 0o644); err != nil {
		return c.env.fail("writing the report", err)
	}
	fmt.Fprintf(c.env.Out, "Report written to %s\n", c.output)
	return subcommands.ExitSuccess
}
