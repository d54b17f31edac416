package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"

	"istock.com/client"
	"istock.com/dto"
	"istock.com/report"
	"istock.com/types"
)

type sourcesCmd struct{ env *Env }

func (*sourcesCmd) Name() string     { return "sources" }
func (*sourcesCmd) Synopsis() string { return "list the active data sources" }
func (*sourcesCmd) Usage() string {
	return `istock sources

  Lists the active data sources with their health.
`
}
func (*sourcesCmd) SetFlags(*flag.FlagSet) {}

func (c *sourcesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	sources, err := c.env.client().DataSources(ctx)
	if err != nil {
		return c.env.fail("listing data sources", err)
	}
	var b strings.Builder
	b.WriteString("# 🔌 Data sources\n\n")
	b.WriteString("| ID | Name | Type | Priority | Status | Health | Last sync |\n")
	b.WriteString("|---:|---|---|---:|---|---:|---|\n")
	for _, s := range sources {
		fmt.Fprintf(&b, "| %d | %s | %s | %d | %s | %.1f | %s |\n",
			s.ID, s.Name, s.SourceType, s.Priority, s.Status, s.HealthScore, stampPtr(s.LastSync))
	}
	if len(sources) == 0 {
		b.WriteString("| | _no active sources_ | | | | | |\n")
	}
	c.env.printMarkdown(b.String())
	return subcommands.ExitSuccess
}

type syncCmd struct {
	env      *Env
	sourceID uint
	syncType string
	symbols  string
	start    string
	end      string
	wait     bool
	poll     time.Duration
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "start a data sync task" }
func (*syncCmd) Usage() string {
	return `istock sync -source <id> [-type realtime|historical] [-symbols AAPL,MSFT] [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-wait]

  Queues a sync on the given data source and prints the task ID. With -wait
  the command polls the task until it finishes.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.UintVar(&c.sourceID, "source", 0, "Data source ID")
	f.StringVar(&c.syncType, "type", types.SyncRealtime, "Sync type: realtime or historical")
	f.StringVar(&c.symbols, "symbols", "", "Comma separated symbols, defaults to the server list")
	f.StringVar(&c.start, "start", "", "Historical start date")
	f.StringVar(&c.end, "end", "", "Historical end date")
	f.BoolVar(&c.wait, "wait", false, "Wait for the task to finish")
	f.DurationVar(&c.poll, "poll", 2*time.Second, "Polling interval with -wait")
}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.sourceID == 0 {
		fmt.Fprintln(c.env.Err, "-source is required, see `istock sources`")
		return subcommands.ExitUsageError
	}
	if c.syncType != types.SyncRealtime && c.syncType != types.SyncHistorical {
		fmt.Fprintf(c.env.Err, "Unknown sync type %q\n", c.syncType)
		return subcommands.ExitUsageError
	}
	if !c.env.requireLogin() {
		return subcommands.ExitFailure
	}

	api := c.env.client()
	resp, err := api.TriggerSync(ctx, dto.SyncRequest{
		DataSourceID: c.sourceID,
		SyncType:     c.syncType,
		Symbols:      splitSymbols(c.symbols),
		StartDate:    c.start,
		EndDate:      c.end,
	})
	if err != nil {
		return c.env.fail("starting the sync", err)
	}
	fmt.Fprintf(c.env.Out, "Task %s %s: %s\n", resp.TaskID, resp.Status, resp.Message)
	if !c.wait {
		return subcommands.ExitSuccess
	}

	entry, err := waitForSync(ctx, api, resp.TaskID, c.poll)
	if err != nil {
		return c.env.fail("waiting for the sync", err)
	}
	fmt.Fprintf(c.env.Out, "Task %s finished %s: %d fetched, %d processed, %d inserted, %d updated\n",
		entry.TaskID, entry.Status, entry.RecordsFetched, entry.RecordsProcessed, entry.RecordsInserted, entry.RecordsUpdated)
	if entry.Status == types.SyncFailed {
		if entry.ErrorMessage != "" {
			fmt.Fprintln(c.env.Err, entry.ErrorMessage)
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func finished(status string) bool {
	switch status {
	case types.SyncSuccess, types.SyncPartial, types.SyncFailed:
		return true
	}
	return false
}

func waitForSync(ctx context.Context, api *client.Client, taskID string, every time.Duration) (*types.DataSyncLog, error) {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		entry, err := api.SyncStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if finished(entry.Status) {
			return entry, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type syncLogsCmd struct {
	env      *Env
	sourceID uint
	syncType string
	status   string
	limit    int
}

func (*syncLogsCmd) Name() string     { return "sync-logs" }
func (*syncLogsCmd) Synopsis() string { return "list recent sync tasks" }
func (*syncLogsCmd) Usage() string {
	return `istock sync-logs [-source <id>] [-type realtime|historical] [-status <status>] [-n <limit>]

  Lists sync tasks, newest first.
`
}

func (c *syncLogsCmd) SetFlags(f *flag.FlagSet) {
	f.UintVar(&c.sourceID, "source", 0, "Only tasks of this data source")
	f.StringVar(&c.syncType, "type", "", "Only realtime or historical tasks")
	f.StringVar(&c.status, "status", "", "Only tasks with this status")
	f.IntVar(&c.limit, "n", 20, "Maximum number of tasks")
}

func (c *syncLogsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logs, err := c.env.client().SyncLogs(ctx, client.SyncLogQuery{
		DataSourceID: c.sourceID,
		SyncType:     c.syncType,
		Status:       c.status,
		Limit:        c.limit,
	})
	if err != nil {
		return c.env.fail("listing sync logs", err)
	}
	var b strings.Builder
	b.WriteString("# 🔄 Sync tasks\n\n")
	b.WriteString("| Task | Type | Status | Started | Fetched | Processed | Error |\n")
	b.WriteString("|---|---|---|---|---:|---:|---|\n")
	for _, l := range logs {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %d | %s |\n",
			l.TaskID, l.SyncType, l.Status, l.StartTime.Format("2006-01-02 15:04"),
			l.RecordsFetched, l.RecordsProcessed, strings.ReplaceAll(l.ErrorMessage, "|", "/"))
	}
	if len(logs) == 0 {
		b.WriteString("| _no tasks_ | | | | | | |\n")
	}
	c.env.printMarkdown(b.String())
	return subcommands.ExitSuccess
}

type statusCmd struct{ env *Env }

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "show API health and statistics" }
func (*statusCmd) Usage() string {
	return `istock status

  Shows the API health, runtime status and data statistics.
`
}
func (*statusCmd) SetFlags(*flag.FlagSet) {}

func (c *statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	api := c.env.client()
	health, err := api.Health(ctx)
	if err != nil {
		return c.env.fail("checking health", err)
	}
	var b strings.Builder
	b.WriteString("# 🩺 iStock status\n\n")
	fmt.Fprintf(&b, "**%s** is %s, version %s, database %s.\n\n", health.Service, health.Status, health.Version, health.Database)

	if st, err := api.SystemStatus(ctx); err == nil {
		b.WriteString("| | |\n|---|---:|\n")
		fmt.Fprintf(&b, "| Uptime | %s |\n", st.Uptime)
		fmt.Fprintf(&b, "| Go | %s |\n", st.Runtime.GoVersion)
		fmt.Fprintf(&b, "| Goroutines | %d |\n", st.Runtime.NumGoroutine)
		fmt.Fprintf(&b, "| Heap | %d MB |\n", st.Runtime.HeapAllocMB)
		fmt.Fprintf(&b, "| Requests | %d (%d errors) |\n", st.API.TotalRequests, st.API.ErrorCount)
		if st.PrimaryDataSource != "" {
			fmt.Fprintf(&b, "| Primary source | %s |\n", st.PrimaryDataSource)
		}
	} else {
		c.env.log().Debug("system status unavailable")
	}

	if stats, err := api.DataStats(ctx); err == nil {
		b.WriteString("\n## Data\n\n")
		fmt.Fprintf(&b, "- Sources: %d active of %d\n", stats.Sources.Active, stats.Sources.Total)
		fmt.Fprintf(&b, "- Sync tasks: %d total, %d today\n", stats.SyncOps.Total, stats.SyncOps.Today)
		fmt.Fprintf(&b, "- Records: %s fetched, %s processed (%.2f%%)\n",
			report.Volume(stats.Records.Fetched), report.Volume(stats.Records.Processed), stats.Records.ProcessingRate)
	}
	c.env.printMarkdown(b.String())
	return subcommands.ExitSuccess
}

func stampPtr(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}
