package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"istock.com/dto"
	"istock.com/report"
)

type addHoldingCmd struct {
	env      *Env
	stockID  uint
	quantity int
	cost     float64
	target   float64
	stopLoss float64
}

func (*addHoldingCmd) Name() string     { return "add-holding" }
func (*addHoldingCmd) Synopsis() string { return "add a stock to the portfolio" }
func (*addHoldingCmd) Usage() string {
	return `istock add-holding -stock <id> -qty <n> -cost <price> [-target <price>] [-stop <price>]

  Adds a holding. A stock can be held only once; use update-holding to
  change it.
`
}

func (c *addHoldingCmd) SetFlags(f *flag.FlagSet) {
	f.UintVar(&c.stockID, "stock", 0, "Stock ID")
	f.IntVar(&c.quantity, "qty", 0, "Number of shares")
	f.Float64Var(&c.cost, "cost", 0, "Average cost per share")
	f.Float64Var(&c.target, "target", 0, "Optional target price")
	f.Float64Var(&c.stopLoss, "stop", 0, "Optional stop loss price")
}

func (c *addHoldingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.stockID == 0 || c.quantity <= 0 || c.cost <= 0 {
		fmt.Fprintln(c.env.Err, "-stock, a positive -qty and a positive -cost are required")
		return subcommands.ExitUsageError
	}
	if !c.env.requireLogin() {
		return subcommands.ExitFailure
	}
	req := dto.CreatePortfolioItemRequest{StockID: c.stockID, Quantity: c.quantity, AvgCost: c.cost}
	if c.target > 0 {
		req.TargetPrice = &c.target
	}
	if c.stopLoss > 0 {
		req.StopLossPrice = &c.stopLoss
	}

	api := c.env.client()
	user, err := c.env.loader(api).User(ctx)
	if err != nil {
		return c.env.fail("loading the user", err)
	}
	item, err := api.AddPortfolioItem(ctx, user.ID, req)
	if err != nil {
		return c.env.fail("adding the holding", err)
	}
	fmt.Fprintf(c.env.Out, "Added %d shares of stock %d at %s.\n", item.Quantity, item.StockID, report.Amount(item.AvgCost))
	return subcommands.ExitSuccess
}

type updateHoldingCmd struct {
	env      *Env
	stockID  uint
	quantity int
	cost     float64
	price    float64
}

func (*updateHoldingCmd) Name() string     { return "update-holding" }
func (*updateHoldingCmd) Synopsis() string { return "change the quantity or cost of a holding" }
func (*updateHoldingCmd) Usage() string {
	return `istock update-holding -stock <id> [-qty <n>] [-cost <price>] [-price <current price>]

  Updates a holding. Only the given flags change.
`
}

func (c *updateHoldingCmd) SetFlags(f *flag.FlagSet) {
	f.UintVar(&c.stockID, "stock", 0, "Stock ID")
	f.IntVar(&c.quantity, "qty", 0, "New number of shares")
	f.Float64Var(&c.cost, "cost", 0, "New average cost per share")
	f.Float64Var(&c.price, "price", 0, "Override the current price")
}

func (c *updateHoldingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var req dto.UpdatePortfolioItemRequest
	if c.quantity > 0 {
		req.Quantity = &c.quantity
	}
	if c.cost > 0 {
		req.AvgCost = &c.cost
	}
	if c.price > 0 {
		req.CurrentPrice = &c.price
	}
	if c.stockID == 0 || (req.Quantity == nil && req.AvgCost == nil && req.CurrentPrice == nil) {
		fmt.Fprintln(c.env.Err, "-stock and at least one of -qty, -cost or -price are required")
		return subcommands.ExitUsageError
	}
	if !c.env.requireLogin() {
		return subcommands.ExitFailure
	}

	api := c.env.client()
	user, err := c.env.loader(api).User(ctx)
	if err != nil {
		return c.env.fail("loading the user", err)
	}
	item, err := api.UpdatePortfolioItem(ctx, user.ID, c.stockID, req)
	if err != nil {
		return c.env.fail("updating the holding", err)
	}
	fmt.Fprintf(c.env.Out, "Stock %d: %d shares, value %s, P/L %s (%s).\n",
		item.StockID, item.Quantity, report.Amount(item.MarketValue),
		report.SignedAmount(item.ProfitLoss), report.Percent(item.ProfitLossPercent))
	return subcommands.ExitSuccess
}

type removeHoldingCmd struct {
	env     *Env
	stockID uint
}

func (*removeHoldingCmd) Name() string     { return "remove-holding" }
func (*removeHoldingCmd) Synopsis() string { return "remove a stock from the portfolio" }
func (*removeHoldingCmd) Usage() string {
	return `istock remove-holding -stock <id>

  Removes the holding of the given stock.
`
}

func (c *removeHoldingCmd) SetFlags(f *flag.FlagSet) {
	f.UintVar(&c.stockID, "stock", 0, "Stock ID")
}

func (c *removeHoldingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.stockID == 0 {
		fmt.Fprintln(c.env.Err, "-stock is required")
		return subcommands.ExitUsageError
	}
	if !c.env.requireLogin() {
		return subcommands.ExitFailure
	}
	api := c.env.client()
	user, err := c.env.loader(api).User(ctx)
	if err != nil {
		return c.env.fail("loading the user", err)
	}
	if err := api.DeletePortfolioItem(ctx, user.ID, c.stockID); err != nil {
		return c.env.fail("removing the holding", err)
	}
	fmt.Fprintf(c.env.Out, "Removed stock %d from the portfolio.\n", c.stockID)
	return subcommands.ExitSuccess
}
