// Package main is the league core admin tool: database initialization,
// roster import/export, integrity validation, schedule generation, agreement
// GC, and the admin API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/courtside/leaguecore/internal/config"
	"github.com/courtside/leaguecore/internal/database"
	"github.com/courtside/leaguecore/internal/domain"
	"github.com/courtside/leaguecore/internal/integrity"
	"github.com/courtside/leaguecore/internal/modules/contracts"
	"github.com/courtside/leaguecore/internal/modules/draft"
	"github.com/courtside/leaguecore/internal/modules/gm"
	"github.com/courtside/leaguecore/internal/modules/results"
	"github.com/courtside/leaguecore/internal/modules/roster"
	"github.com/courtside/leaguecore/internal/modules/schedule"
	"github.com/courtside/leaguecore/internal/modules/settings"
	"github.com/courtside/leaguecore/internal/modules/trade"
	"github.com/courtside/leaguecore/internal/scheduler"
	"github.com/courtside/leaguecore/internal/server"
	"github.com/courtside/leaguecore/pkg/logger"
)

const usage = `usage: leaguectl <command> [flags]

commands:
  init           create the database schema
  import_roster  load rosters from an xlsx workbook
  export_roster  write the current roster to an xlsx workbook
  validate       run the integrity validator
  bootstrap      seed contracts from the current roster
  offseason      process option decisions and expiries between two seasons
  schedule       generate a season's master schedule
  gc             sweep expired trade agreements
  serve          run the admin API server

Every command accepts --db to override the database path.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "leaguectl: %v\n", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *database.DB

	roster     *roster.Repository
	contracts  *contracts.Repository
	draft      *draft.Repository
	settings   *settings.Repository
	gm         *gm.Repository
	schedule   *schedule.Repository
	agreements *trade.AgreementRepository
	txlog      *trade.LogRepository
	resultRepo *results.Repository

	importer    *roster.Service
	contractSvc *contracts.Service
	scheduleSvc *schedule.Service
	tradeSvc    *trade.Service
	resultSvc   *results.Service
}

func newApp(dbPath string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})
	logger.SetGlobalLogger(log)

	db, err := database.New(database.Config{Path: cfg.DBPath, Log: log})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		roster:     roster.NewRepository(log),
		contracts:  contracts.NewRepository(log),
		draft:      draft.NewRepository(log),
		settings:   settings.NewRepository(log),
		gm:         gm.NewRepository(log),
		schedule:   schedule.NewRepository(log),
		agreements: trade.NewAgreementRepository(log),
		txlog:      trade.NewLogRepository(log),
		resultRepo: results.NewRepository(log),
	}
	a.importer = roster.NewService(db, a.roster, log)
	a.contractSvc = contracts.NewService(db, a.contracts, a.roster, log)
	a.scheduleSvc = schedule.NewService(db, a.schedule, a.draft, a.settings, log)
	a.tradeSvc = trade.NewService(db, a.roster, a.contracts, a.draft, a.settings, a.agreements, a.txlog, log)
	a.resultSvc = results.NewService(db, a.resultRepo, a.schedule, log)
	return a, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Error().Err(err).Msg("Failed to close database")
	}
}

func run(command string, args []string) error {
	switch command {
	case "init":
		return cmdInit(args)
	case "import_roster":
		return cmdImportRoster(args)
	case "export_roster":
		return cmdExportRoster(args)
	case "validate":
		return cmdValidate(args)
	case "bootstrap":
		return cmdBootstrap(args)
	case "offseason":
		return cmdOffseason(args)
	case "schedule":
		return cmdSchedule(args)
	case "gc":
		return cmdGC(args)
	case "serve":
		return cmdServe(args)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path")
	fs.Parse(args)

	a, err := newApp(*dbPath)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.db.InitDB(); err != nil {
		return err
	}
	return a.db.InTx(context.Background(), true, func(tx *database.Tx) error {
		if err := a.roster.EnsureTeamsSeeded(tx); err != nil {
			return err
		}
		return a.gm.EnsureSeeded(tx, domain.LeagueTeams())
	})
}

func cmdImportRoster(args []string) error {
	fs := flag.NewFlagSet("import_roster", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path")
	excel := fs.String("excel", "", "xlsx workbook path")
	sheet := fs.String("sheet", "", "sheet name (defaults to the first sheet)")
	mode := fs.String("mode", "replace", "replace or upsert")
	allowLegacy := fs.Bool("allow-legacy-ids", false, "accept bare numeric player ids")
	fs.Parse(args)

	if *excel == "" {
		return fmt.Errorf("--excel is required")
	}
	a, err := newApp(*dbPath)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.db.InitDB(); err != nil {
		return err
	}
	count, err := a.importer.ImportExcel(context.Background(), *excel, *sheet, roster.ImportMode(*mode), *allowLegacy)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d players\n", count)
	return nil
}

func cmdExportRoster(args []string) error {
	fs := flag.NewFlagSet("export_roster", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path")
	excel := fs.String("excel", "", "xlsx workbook path")
	fs.Parse(args)

	if *excel == "" {
		return fmt.Errorf("--excel is required")
	}
	a, err := newApp(*dbPath)
	if err != nil {
		return err
	}
	defer a.close()
	return a.importer.ExportExcel(context.Background(), *excel)
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path")
	allowLegacy := fs.Bool("allow-legacy-ids", false, "accept bare numeric player ids")
	fs.Parse(args)

	a, err := newApp(*dbPath)
	if err != nil {
		return err
	}
	defer a.close()

	return a.db.InTx(context.Background(), false, func(tx *database.Tx) error {
		return integrity.Validate(tx, integrity.Options{StrictIDs: !*allowLegacy})
	})
}

func cmdBootstrap(args []string) error {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path")
	season := fs.Int("season", time.Now().Year(), "season start year")
	fs.Parse(args)

	a, err := newApp(*dbPath)
	if err != nil {
		return err
	}
	defer a.close()

	count, err := a.contractSvc.EnsureBootstrappedFromRoster(context.Background(), *season)
	if err != nil {
		return err
	}
	fmt.Printf("bootstrapped %d contracts\n", count)
	return nil
}

func cmdOffseason(args []string) error {
	fs := flag.NewFlagSet("offseason", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path")
	from := fs.Int("from", 0, "season year ending")
	to := fs.Int("to", 0, "season year starting")
	fs.Parse(args)

	if *from == 0 || *to == 0 {
		return fmt.Errorf("--from and --to are required")
	}
	a, err := newApp(*dbPath)
	if err != nil {
		return err
	}
	defer a.close()
	return a.contractSvc.ProcessOffseason(context.Background(), *from, *to, contracts.DefaultDecisionPolicy)
}

func cmdSchedule(args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path")
	season := fs.Int("season", 0, "season start year")
	fs.Parse(args)

	if *season == 0 {
		return fmt.Errorf("--season is required")
	}
	a, err := newApp(*dbPath)
	if err != nil {
		return err
	}
	defer a.close()

	games, err := a.scheduleSvc.BuildMasterSchedule(context.Background(), *season)
	if err != nil {
		return err
	}
	fmt.Printf("scheduled %d games\n", len(games))
	return nil
}

func cmdGC(args []string) error {
	fs := flag.NewFlagSet("gc", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path")
	date := fs.String("date", time.Now().UTC().Format("2006-01-02"), "sweep as of this date")
	fs.Parse(args)

	a, err := newApp(*dbPath)
	if err != nil {
		return err
	}
	defer a.close()

	swept, err := a.tradeSvc.GCExpiredAgreements(context.Background(), *date)
	if err != nil {
		return err
	}
	fmt.Printf("swept %d agreements\n", swept)
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", "", "database path")
	port := fs.String("port", "", "listen port (overrides LEAGUE_PORT)")
	fs.Parse(args)

	a, err := newApp(*dbPath)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.db.InitDB(); err != nil {
		return err
	}
	listenPort := a.cfg.Port
	if *port != "" {
		listenPort, err = strconv.Atoi(*port)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", *port, err)
		}
	}

	sched, err := scheduler.New(a.db, a.tradeSvc, a.cfg.GCSpec, a.log)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:      a.log,
		DB:       a.db,
		Port:     listenPort,
		Roster:   a.roster,
		Schedule: a.schedule,
		Txlog:    a.txlog,
		Trade:    a.tradeSvc,
		Results:  a.resultSvc,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
