package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/lox/coastscore/internal/api"
	"github.com/lox/coastscore/internal/config"
	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/imagegen"
	"github.com/lox/coastscore/internal/ingest"
	"github.com/lox/coastscore/internal/narrative"
	"github.com/lox/coastscore/internal/store"
)

type CLI struct {
	DB    string `help:"Path to SQLite database." default:"data/coastscore.db" env:"COASTSCORE_DB"`
	Areas string `help:"Path to areas.yaml. Defaults to the Tel Aviv coast." env:"COASTSCORE_AREAS"`

	Upstream string `help:"Base URL of the scoring service." default:"http://localhost:8000" env:"UPSTREAM_URL"`
	Days     int    `help:"Forecast days to request." default:"7" env:"FORECAST_DAYS"`

	FTP FTPFlags `embed:"" prefix:"ftp-" envprefix:"FTP_"`

	OpenAIKey   string `name:"openai-key" help:"OpenAI API key for vibe lines and backdrops." env:"OPENAI_API_KEY"`
	OpenAIModel string `name:"openai-model" help:"Chat model for vibe lines." default:"gpt-4o-mini" env:"OPENAI_MODEL"`

	Serve  ServeCmd  `cmd:"" default:"withargs" help:"Run the poller and HTTP API."`
	Ingest IngestCmd `cmd:"" help:"Fetch every area once and exit."`
	Views  ViewsCmd  `cmd:"" help:"Print a derived view for the latest snapshot."`
}

// FTPFlags configure the fallback FTP drop. It is disabled without an address.
type FTPFlags struct {
	Addr     string `help:"FTP drop host:port." env:"ADDR"`
	User     string `help:"FTP user." env:"USER"`
	Password string `help:"FTP password." env:"PASSWORD"`
	Dir      string `help:"Directory holding <area>.json files." default:"/drop" env:"DIR"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("coastscore"),
		kong.Description("Coastal activity scores: ingest, derived views and share cards."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli))
}

// openStore opens and migrates the database.
func (c *CLI) openStore() (*store.Store, func(), error) {
	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")
	return st, func() { db.Close() }, nil
}

// sources returns the HTTP upstream followed by the FTP drop when configured.
func (c *CLI) sources() (*ingest.Upstream, []ingest.Source) {
	up := ingest.NewUpstream(c.Upstream, c.Days)
	srcs := []ingest.Source{up}
	if c.FTP.Addr != "" {
		srcs = append(srcs, ingest.NewFTPDrop(c.FTP.Addr, c.FTP.User, c.FTP.Password, c.FTP.Dir))
	}
	return up, srcs
}

type ServeCmd struct {
	Addr      string        `help:"HTTP listen address." default:":8080" env:"ADDR"`
	NoPoll    bool          `help:"Disable polling (server only, for local dev)."`
	Interval  time.Duration `help:"Polling interval." default:"30m" env:"POLL_INTERVAL"`
	Keep      int           `help:"Snapshots kept per area." default:"48"`
	Retention int           `help:"Days of raw payloads kept." default:"30"`
	ImageDir  string        `help:"Backdrop cache directory." default:"data/images" type:"path"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	areas, err := config.LoadAreas(cli.Areas)
	if err != nil {
		return err
	}
	st, closeDB, err := cli.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	var gen *imagegen.Generator
	if g, err := imagegen.NewGenerator(cli.OpenAIKey); err != nil {
		log.Printf("image generation disabled: %v", err)
	} else {
		gen = g
	}

	up, srcs := cli.sources()
	server := api.NewServer(st, api.Options{
		Addr:          c.Addr,
		Areas:         areas,
		Narrator:      narrative.New(cli.OpenAIKey, cli.OpenAIModel),
		ImageGen:      gen,
		ImageCacheDir: c.ImageDir,
		BreakerState:  up.BreakerState,
	})

	scheduler := ingest.NewScheduler(st, srcs, config.AreaIDs(areas))
	scheduler.SetInterval(c.Interval)
	scheduler.SetRetention(c.Keep, c.Retention)
	scheduler.SetOnSnapshot(server.InvalidateArea)
	scheduler.SetAreaSettings(areas)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if !c.NoPoll {
		g.Go(func() error {
			scheduler.Run(ctx)
			return nil
		})
	} else {
		log.Println("polling disabled (--no-poll)")
	}
	g.Go(func() error { return server.Run(ctx) })
	return g.Wait()
}

type IngestCmd struct {
	Area string `help:"Only ingest this area."`
}

func (c *IngestCmd) Run(cli *CLI) error {
	areas, err := config.LoadAreas(cli.Areas)
	if err != nil {
		return err
	}
	st, closeDB, err := cli.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	_, srcs := cli.sources()
	scheduler := ingest.NewScheduler(st, srcs, config.AreaIDs(areas))
	scheduler.SetAreaSettings(areas)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("running single ingestion")
	if c.Area != "" {
		err = scheduler.IngestArea(ctx, c.Area)
	} else {
		err = scheduler.IngestOnce(ctx)
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	log.Println("done")
	return nil
}

type ViewsCmd struct {
	View   string `arg:"" enum:"days,window,hours,graph,svg" help:"View to print: days, window, hours, graph or svg."`
	Area   string `help:"Area id. Defaults to the first configured area."`
	Mode   string `help:"Activity mode." default:"swim_solo" enum:"swim_solo,swim_dog,run_solo,run_dog"`
	Metric string `help:"Metric for days and graph views." default:"score" enum:"score,temp,uv,wind,waves,rain,aqi"`
	Day    string `help:"Limit graph views to one local day (YYYY-MM-DD)."`
}

func (c *ViewsCmd) Run(cli *CLI) error {
	areas, err := config.LoadAreas(cli.Areas)
	if err != nil {
		return err
	}
	settings := areas[0]
	if c.Area != "" {
		found := false
		for _, a := range areas {
			if a.AreaID == c.Area {
				settings, found = a, true
			}
		}
		if !found {
			return fmt.Errorf("unknown area %q", c.Area)
		}
	}

	st, closeDB, err := cli.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	snap, err := st.LatestSnapshot(settings.AreaID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return fmt.Errorf("%s: %w", settings.AreaID, api.ErrNoSnapshot)
	}

	mode, err := forecast.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	metric, err := forecast.ParseMetric(c.Metric)
	if err != nil {
		return err
	}
	return printView(os.Stdout, c.View, snap, settings, mode, metric, c.Day, time.Now())
}
