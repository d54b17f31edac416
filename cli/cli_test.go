package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"istock.com/client"
	"istock.com/dto"
	"istock.com/types"
)

func writeEnvelope(w http.ResponseWriter, status int, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(types.Response{Success: status < 400, Data: data, Error: errMsg})
}

type fakeAPI struct {
	*httptest.Server
	mu    sync.Mutex
	added []dto.CreatePortfolioItemRequest
	syncs []dto.SyncRequest
	polls atomic.Int32
}

// newFakeAPI accepts "good-token" and the credentials alice/s3cretpass.
func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer good-token" {
				writeEnvelope(w, 401, nil, "Unauthorized - invalid token")
				return
			}
			h(w, r)
		}
	}
	alice := types.User{ID: "u-1", Username: "alice", Email: "alice@example.com", RiskLevel: "medium"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/users/login", func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "alice" || req.Password != "s3cretpass" {
			writeEnvelope(w, 401, nil, "Incorrect username or password")
			return
		}
		writeEnvelope(w, 200, dto.TokenResponse{AccessToken: "good-token", TokenType: "bearer", User: alice}, "")
	})
	mux.HandleFunc("GET /api/v1/users/me", authed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, alice, "")
	}))
	mux.HandleFunc("GET /api/v1/portfolio/u-1/summary", authed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, dto.PortfolioSummary{TotalValue: 2200, TotalCost: 2000, TotalProfitLoss: 200, TotalProfitLossPercent: 10, ItemCount: 1}, "")
	}))
	mux.HandleFunc("GET /api/v1/portfolio/u-1/details", authed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, []dto.PortfolioDetail{}, "")
	}))
	mux.HandleFunc("POST /api/v1/portfolio/u-1/items", authed(func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreatePortfolioItemRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.added = append(f.added, req)
		f.mu.Unlock()
		writeEnvelope(w, 201, types.PortfolioItem{StockID: req.StockID, Quantity: req.Quantity, AvgCost: req.AvgCost}, "")
	}))
	mux.HandleFunc("GET /api/v1/stocks", authed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, dto.StockList{Items: []types.Stock{
			{ID: 1, Symbol: "AAPL", Name: "Apple", Market: "NASDAQ", Industry: "Technology", Price: 220},
			{ID: 2, Symbol: "600519", Name: "Kweichow Moutai", Market: "SSE", Industry: "Consumer", Price: 1500},
		}, Total: 2, Limit: 1000}, "")
	}))
	mux.HandleFunc("GET /api/v1/stocks/market/overview", authed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, dto.MarketOverview{Markets: map[string]dto.MarketIndex{"nasdaq": {Change: 1.5, Status: "up"}}}, "")
	}))
	mux.HandleFunc("POST /api/v1/data/sync", authed(func(w http.ResponseWriter, r *http.Request) {
		var req dto.SyncRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.syncs = append(f.syncs, req)
		f.mu.Unlock()
		writeEnvelope(w, 202, dto.SyncResponse{TaskID: "task-1", Status: types.SyncStarted, Message: "sync task queued"}, "")
	}))
	mux.HandleFunc("GET /api/v1/data/sync/status/task-1", func(w http.ResponseWriter, r *http.Request) {
		status := types.SyncRunning
		if f.polls.Add(1) > 1 {
			status = types.SyncSuccess
		}
		writeEnvelope(w, 200, types.DataSyncLog{TaskID: "task-1", Status: status, RecordsFetched: 6, RecordsProcessed: 6}, "")
	})
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.HealthResponse{Status: "healthy", Service: "istock-api", Version: "1.0.0", Database: "connected"})
	})
	mux.HandleFunc("GET /api/v1/system/status", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, dto.SystemStatus{Status: "running", Uptime: "1h0m0s", PrimaryDataSource: "sim"}, "")
	})
	mux.HandleFunc("GET /api/v1/data/stats/overview", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, dto.StatsOverview{Sources: dto.SourcesOverview{Total: 2, Active: 1}}, "")
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

type testEnv struct {
	*Env
	out, err *bytes.Buffer
	store    *client.MemoryStore
}

func newTestEnv(apiURL, token string) *testEnv {
	te := &testEnv{out: &bytes.Buffer{}, err: &bytes.Buffer{}, store: client.NewMemoryStore(token)}
	te.Env = &Env{
		BaseURL: apiURL + "/api/v1",
		Store:   te.store,
		Out:     te.out,
		Err:     te.err,
		In:      strings.NewReader(""),
		Plain:   true,
		Now:     func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC) },
	}
	return te
}

func run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cmd.Execute(context.Background(), fs)
}

func TestLogin(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "")

	assert.Equal(t, subcommands.ExitSuccess, run(t, &loginCmd{env: env.Env}, "-u", "alice", "-p", "s3cretpass"))
	assert.Equal(t, "good-token", env.store.Token())
	assert.Contains(t, env.out.String(), "Logged in as alice.")
}

func TestLogin_Failure(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "")

	assert.Equal(t, subcommands.ExitFailure, run(t, &loginCmd{env: env.Env}, "-u", "alice", "-p", "nope"))
	assert.Empty(t, env.store.Token())
	assert.Contains(t, env.err.String(), "Login failed: Incorrect username or password")
	assert.NotContains(t, env.err.String(), msgRelogin)
}

func TestLogin_PromptsForPassword(t *testing.T) {
	t.Setenv("ISTOCK_PASSWORD", "")
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "")
	env.In = strings.NewReader("s3cretpass\n")

	assert.Equal(t, subcommands.ExitSuccess, run(t, &loginCmd{env: env.Env}, "-u", "alice"))
	assert.Contains(t, env.err.String(), "Password: ")
	assert.Equal(t, "good-token", env.store.Token())
}

func TestLogin_UsageErrors(t *testing.T) {
	t.Setenv("ISTOCK_PASSWORD", "")
	env := newTestEnv("http://127.0.0.1:0", "")

	assert.Equal(t, subcommands.ExitUsageError, run(t, &loginCmd{env: env.Env}))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &loginCmd{env: env.Env}, "-u", "alice"))
}

func TestLogoutAndWhoami(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "good-token")

	assert.Equal(t, subcommands.ExitSuccess, run(t, &whoamiCmd{env: env.Env}))
	assert.Contains(t, env.out.String(), "alice <alice@example.com>, risk level medium")

	assert.Equal(t, subcommands.ExitSuccess, run(t, &logoutCmd{env: env.Env}))
	assert.Empty(t, env.store.Token())

	assert.Equal(t, subcommands.ExitFailure, run(t, &whoamiCmd{env: env.Env}))
	assert.Contains(t, env.err.String(), "Not logged in")
}

func TestExpiredTokenAsksForLogin(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "stale-token")

	assert.Equal(t, subcommands.ExitFailure, run(t, &dashboardCmd{env: env.Env}))
	assert.Contains(t, env.err.String(), msgRelogin)
	assert.Empty(t, env.store.Token())
	assert.Empty(t, env.out.String())
}

func TestDashboard(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "good-token")

	assert.Equal(t, subcommands.ExitSuccess, run(t, &dashboardCmd{env: env.Env}))
	out := env.out.String()
	assert.Contains(t, out, "| Total value | $2,200.00 |")
	assert.Contains(t, out, "| Nasdaq | +1.50% | ▲ up |")
	assert.NotContains(t, out, "Showing demo data")
}

func TestDashboard_DemoWhenAPIDown(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "good-token")
	api.Close()

	assert.Equal(t, subcommands.ExitSuccess, run(t, &dashboardCmd{env: env.Env}))
	assert.Contains(t, env.out.String(), "Cannot reach the iStock API. Showing demo data")
	assert.Equal(t, "good-token", env.store.Token())
}

func TestStocks_Filter(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "good-token")

	assert.Equal(t, subcommands.ExitSuccess, run(t, &stocksCmd{env: env.Env}, "-search", "moutai", "-show", "600519"))
	out := env.out.String()
	assert.Contains(t, out, "1 of 2 stocks")
	assert.Contains(t, out, "## 600519 · Kweichow Moutai")
	assert.NotContains(t, out, "| AAPL |")
}

func TestAddHolding(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "good-token")

	assert.Equal(t, subcommands.ExitUsageError, run(t, &addHoldingCmd{env: env.Env}, "-stock", "1"))

	assert.Equal(t, subcommands.ExitSuccess, run(t, &addHoldingCmd{env: env.Env}, "-stock", "1", "-qty", "10", "-cost", "200", "-target", "250"))
	assert.Contains(t, env.out.String(), "Added 10 shares of stock 1 at $200.00.")

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.added, 1)
	require.NotNil(t, api.added[0].TargetPrice)
	assert.Equal(t, 250.0, *api.added[0].TargetPrice)
	assert.Nil(t, api.added[0].StopLossPrice)
}

func TestSync_Wait(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "good-token")

	status := run(t, &syncCmd{env: env.Env}, "-source", "3", "-symbols", "aapl, msft", "-wait", "-poll", "10ms")
	assert.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, env.out.String(), "Task task-1 started")
	assert.Contains(t, env.out.String(), "Task task-1 finished success: 6 fetched")
	assert.GreaterOrEqual(t, api.polls.Load(), int32(2))

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.syncs, 1)
	assert.Equal(t, uint(3), api.syncs[0].DataSourceID)
	assert.Equal(t, types.SyncRealtime, api.syncs[0].SyncType)
	assert.Equal(t, []string{"AAPL", "MSFT"}, api.syncs[0].Symbols)
}

func TestSync_UsageErrors(t *testing.T) {
	env := newTestEnv("http://127.0.0.1:0", "good-token")
	assert.Equal(t, subcommands.ExitUsageError, run(t, &syncCmd{env: env.Env}))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &syncCmd{env: env.Env}, "-source", "1", "-type", "weekly"))
}

func TestReport_WritesFile(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "good-token")
	path := filepath.Join(t.TempDir(), "report.md")

	assert.Equal(t, subcommands.ExitSuccess, run(t, &reportCmd{env: env.Env}, "-o", path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "# 📄 iStock report"))
	assert.Contains(t, string(raw), "Kweichow Moutai")
	assert.Contains(t, env.out.String(), "Report written to")
}

func TestStatus(t *testing.T) {
	api := newFakeAPI(t)
	env := newTestEnv(api.URL, "")

	assert.Equal(t, subcommands.ExitSuccess, run(t, &statusCmd{env: env.Env}))
	out := env.out.String()
	assert.Contains(t, out, "**istock-api** is healthy, version 1.0.0, database connected.")
	assert.Contains(t, out, "| Primary source | sim |")
	assert.Contains(t, out, "- Sources: 1 active of 2")
}

func TestCompletion(t *testing.T) {
	env := newTestEnv("http://127.0.0.1:0", "")
	cmds := Commands(env.Env)
	tree := Completion(cmds)

	assert.Len(t, tree.Sub, len(cmds)+3)
	require.Contains(t, tree.Sub, "sync")
	assert.Equal(t, predict.Set{"realtime", "historical"}, tree.Sub["sync"].Flags["type"])
	assert.Equal(t, predict.Nothing, tree.Sub["sync"].Flags["wait"])
	assert.Equal(t, predict.Something, tree.Sub["login"].Flags["u"])
	assert.Contains(t, tree.Sub["register"].Flags, "risk")
}
