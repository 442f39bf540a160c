package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"financas/internal/backend"
	"financas/internal/cache"
	"financas/internal/config"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/sheets/google"
	"financas/internal/storage"
)

// Env is passed to every command through subcommands' Execute arguments.
type Env struct {
	Config *config.Config
	Logger *applog.Logger
	Out    io.Writer
	// Now overrides the clock; nil means the wall clock.
	Now func() time.Time
}

// Commands lists the financasctl subcommands.
var Commands = []subcommands.Command{
	&migrateCmd{},
	&projectCmd{},
	&importCmd{},
	&cloneCmd{},
	&exportCmd{},
}

func envFrom(args []any) (*Env, error) {
	for _, a := range args {
		if env, ok := a.(*Env); ok {
			return env, nil
		}
	}
	return nil, errors.New("missing command environment")
}

func (e *Env) clock() services.Clock {
	c := services.SystemClock(e.Config.Location())
	if e.Now != nil {
		c.Now = e.Now
	}
	return c
}

func (e *Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

// openStore opens the configured backend. The caller must run the cleanup.
func (e *Env) openStore(ctx context.Context) (storage.Store, func(), error) {
	cfg, err := backend.FromAppConfig(e.Config)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(e.Logger).CreateBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return res.Store, func() {
		if err := res.Cleanup(); err != nil {
			e.Logger.Warn("Failed to close backend", applog.FieldError, err)
		}
	}, nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "error:", err)
	return subcommands.ExitFailure
}

// parseMonth accepts YYYY-MM and returns the first day of that month.
func parseMonth(s string) (core.Date, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return core.DateOf(t), nil
}

type migrateCmd struct {
	down bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply or roll back the database schema" }
func (*migrateCmd) Usage() string {
	return `financasctl migrate [-down]

  Applies every pending migration to the configured sqlite or postgres
  database, or rolls them all back with -down.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.down, "down", false, "roll back every migration")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	env, err := envFrom(args)
	if err != nil {
		return fail(err)
	}
	cfg, err := backend.FromAppConfig(env.Config)
	if err != nil {
		return fail(err)
	}
	dir := storage.MigrateUp
	if c.down {
		dir = storage.MigrateDown
	}
	version, err := backend.Migrate(cfg, dir)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(env.out(), "schema version %d\n", version)
	return subcommands.ExitSuccess
}

type projectCmd struct {
	box       string
	timeframe string
	predict   string
	month     string
	asJSON    bool
}

func (*projectCmd) Name() string     { return "project" }
func (*projectCmd) Synopsis() string { return "print the investment projection" }
func (*projectCmd) Usage() string {
	return `financasctl project [-box <id>] [-timeframe 1Y|5Y|10Y|20Y] [-predict true|false] [-month YYYY-MM] [-json]

  Runs the projection over the stored ledger. Unset flags fall back to the
  saved settings.
`
}

func (c *projectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.box, "box", "", "project a single investment box")
	f.StringVar(&c.timeframe, "timeframe", "", "projection horizon")
	f.StringVar(&c.predict, "predict", "", "add the projected monthly contribution")
	f.StringVar(&c.month, "month", "", "selected month, defaults to the current one")
	f.BoolVar(&c.asJSON, "json", false, "print the full result as JSON")
}

func (c *projectCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	env, err := envFrom(args)
	if err != nil {
		return fail(err)
	}

	q := services.ProjectionQuery{BoxID: c.box}
	if c.timeframe != "" {
		q.Timeframe = core.Timeframe(strings.ToUpper(c.timeframe))
		if !q.Timeframe.IsValid() {
			return fail(fmt.Errorf("%w: %q", core.ErrInvalidTimeframe, c.timeframe))
		}
	}
	if c.predict != "" {
		p, err := strconv.ParseBool(c.predict)
		if err != nil {
			return fail(fmt.Errorf("invalid -predict %q", c.predict))
		}
		q.Predict = &p
	}
	if c.month != "" {
		if q.SelectedMonth, err = parseMonth(c.month); err != nil {
			return fail(err)
		}
	}

	store, closeStore, err := env.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeStore()

	summaries := cache.NewLRUCache[core.MonthSummary](1, time.Minute)
	dashboard := services.NewDashboardService(store, store, services.NewSettingsService(store), env.clock(), summaries)
	res, err := dashboard.Projection(ctx, q)
	if err != nil {
		return fail(err)
	}

	if c.asJSON {
		enc := json.NewEncoder(env.out())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}
	if !res.HasAnyInvestment {
		fmt.Fprintln(env.out(), "no investments yet")
		return subcommands.ExitSuccess
	}

	brl := func(v float64) string { return core.MoneyFromFloat(v).String() }
	tw := tabwriter.NewWriter(env.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Patrimônio atual\t%s\n", brl(res.CurrentPatrimony))
	fmt.Fprintf(tw, "Aportado\t%s\n", brl(res.CurrentPrincipal))
	fmt.Fprintf(tw, "Rendimento\t%s (%.2f%%)\n", brl(res.CurrentProfit), res.ProfitPercentage)
	fmt.Fprintf(tw, "Taxa anual\t%.2f%%\n", res.AnnualInterestRate)
	fmt.Fprintf(tw, "Aporte mensal projetado\t%s\n", brl(res.ProjectedMonthlyContribution))
	fmt.Fprintf(tw, "Patrimônio em %s\t%s\n", res.FinalDate, brl(res.FinalPatrimony))
	fmt.Fprintf(tw, "Aportado em %s\t%s\n", res.FinalDate, brl(res.FinalPrincipal))
	if err := tw.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a legacy JSON transaction export" }
func (*importCmd) Usage() string {
	return `financasctl import <file.json>

  Inserts every transaction of a legacy JSON array. Use - for stdin.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	env, err := envFrom(args)
	if err != nil {
		return fail(err)
	}
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "import expects exactly one file")
		return subcommands.ExitUsageError
	}

	var in io.Reader = os.Stdin
	if name := f.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return fail(err)
		}
		defer file.Close()
		in = file
	}

	store, closeStore, err := env.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeStore()

	n, err := services.NewTransactionService(store, nil, nil, env.clock()).ImportLegacy(ctx, in)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(env.out(), "imported %d transactions\n", n)
	return subcommands.ExitSuccess
}

type cloneCmd struct {
	month string
}

func (*cloneCmd) Name() string     { return "clone" }
func (*cloneCmd) Synopsis() string { return "copy a month's transactions into the next month" }
func (*cloneCmd) Usage() string {
	return `financasctl clone -month YYYY-MM
`
}

func (c *cloneCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "month to copy from")
}

func (c *cloneCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	env, err := envFrom(args)
	if err != nil {
		return fail(err)
	}
	month, err := parseMonth(c.month)
	if err != nil {
		return fail(err)
	}

	store, closeStore, err := env.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeStore()

	res, err := services.NewTransactionService(store, nil, nil, env.clock()).CloneMonth(ctx, month)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(env.out(), "cloned %d transactions into %s\n", len(res.Created), month.AddMonths(1).Format("2006-01"))
	if res.TargetHadTransactions {
		fmt.Fprintln(env.out(), "warning: the target month already had transactions")
	}
	return subcommands.ExitSuccess
}

type exportCmd struct {
	month string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write one month to the Google spreadsheet" }
func (*exportCmd) Usage() string {
	return `financasctl export [-month YYYY-MM]

  Rewrites the month's rows in the configured spreadsheet.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "month to export, defaults to the current one")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...any) subcommands.ExitStatus {
	env, err := envFrom(args)
	if err != nil {
		return fail(err)
	}
	if env.Config.GoogleSpreadsheetID == "" {
		return fail(errors.New("GOOGLE_SPREADSHEET_ID is not set"))
	}
	month := core.MonthOf(env.clock().Today())
	if c.month != "" {
		if month, err = parseMonth(c.month); err != nil {
			return fail(err)
		}
	}

	store, closeStore, err := env.openStore(ctx)
	if err != nil {
		return fail(err)
	}
	defer closeStore()

	exporter, err := google.New(ctx, google.Config{
		SpreadsheetID:   env.Config.GoogleSpreadsheetID,
		SheetName:       env.Config.GoogleSheetName,
		CredentialsJSON: env.Config.GoogleServiceAccountJSON,
		CredentialsFile: env.Config.GoogleServiceAccountFile,
	})
	if err != nil {
		return fail(err)
	}
	txs, err := store.ListTransactionsInMonth(ctx, month)
	if err != nil {
		return fail(err)
	}
	if err := exporter.ExportMonth(ctx, month, txs); err != nil {
		return fail(err)
	}
	fmt.Fprintf(env.out(), "exported %d transactions for %s\n", len(txs), month.Format("2006-01"))
	return subcommands.ExitSuccess
}
