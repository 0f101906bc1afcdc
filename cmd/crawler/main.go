package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/monomonedula/evrostan/internal/catalogue"
	"github.com/monomonedula/evrostan/internal/config"
	"github.com/monomonedula/evrostan/internal/dedup"
	"github.com/monomonedula/evrostan/internal/geo"
	"github.com/monomonedula/evrostan/internal/httpclient"
	"github.com/monomonedula/evrostan/internal/imagery"
	"github.com/monomonedula/evrostan/internal/logger"
	"github.com/monomonedula/evrostan/internal/metrics"
	"github.com/monomonedula/evrostan/internal/model"
	"github.com/monomonedula/evrostan/internal/observability"
	"github.com/monomonedula/evrostan/internal/ops"
	"github.com/monomonedula/evrostan/internal/overlay"
	"github.com/monomonedula/evrostan/internal/resolver"
	"github.com/monomonedula/evrostan/internal/sampler"
	"github.com/monomonedula/evrostan/internal/store"
	"github.com/monomonedula/evrostan/internal/streetview"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "crawler",
	Short: "Harvest street-level panoramas over a square region",
	Long: `Sample a square region on a fixed metric grid, resolve each sample
point to a panorama, and download every panorama once as a set of
directional images. Results land in an output directory together with
an index.csv catalogue.`,
	Args:          cobra.NoArgs,
	RunE:          runCrawl,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	f := rootCmd.Flags()
	f.String("centre", "", `centre of the region as "lat,lng"`)
	f.String("out", "", "directory the catalogue is written to")
	f.Int("side", 0, "region side length in metres")
	f.Int("step", 0, "sampling step in metres")
	f.Int("fov", 0, "horizontal field of view per image, must divide 360")
	f.Int("width", 0, "image width in pixels")
	f.Int("height", 0, "image height in pixels")
	f.String("strategy", "", "persistence strategy: simple or glued")
	f.Bool("seam-wrap", true, "repeat the last pane at the front of glued composites")
	f.Bool("kml", false, "write a coverage.kml overlay next to the index")
	f.Int("concurrency", 0, "panoramas downloaded in parallel")
	f.String("metrics-addr", "", "serve /metrics and /healthz on this address")

	_ = rootCmd.MarkFlagRequired("centre")
	_ = rootCmd.MarkFlagRequired("out")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()

	flags := cmd.Flags()
	raw, _ := flags.GetString("centre")
	centre, err := geo.ParseCoordinate(raw)
	if err != nil {
		return err
	}
	cfg.Centre = centre
	cfg.OutDir, _ = flags.GetString("out")

	// flags beat the environment, but only when actually given
	if flags.Changed("side") {
		cfg.Side, _ = flags.GetInt("side")
	}
	if flags.Changed("step") {
		cfg.Step, _ = flags.GetInt("step")
	}
	if flags.Changed("fov") {
		cfg.FOV, _ = flags.GetInt("fov")
	}
	if flags.Changed("width") {
		cfg.Width, _ = flags.GetInt("width")
	}
	if flags.Changed("height") {
		cfg.Height, _ = flags.GetInt("height")
	}
	if flags.Changed("strategy") {
		cfg.Strategy, _ = flags.GetString("strategy")
	}
	if flags.Changed("seam-wrap") {
		cfg.SeamWrap, _ = flags.GetBool("seam-wrap")
	}
	if flags.Changed("kml") {
		cfg.KML, _ = flags.GetBool("kml")
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		RunID:     logger.NewID(),
		Component: "crawler",
	}, os.Stdout)
	log := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := metrics.Init(metrics.BuildInfo{Version: Version})
	observability.Init(p.Registerer())
	if cfg.MetricsAddr != "" {
		go func() {
			if err := ops.Serve(ctx, cfg.MetricsAddr, log, p); err != nil {
				log.Warn("ops server exited", "err", err)
			}
		}()
	}

	log.Info("starting crawl",
		"version", Version,
		"centre", cfg.Centre.String(),
		"side_m", cfg.Side,
		"step_m", cfg.Step,
		"fov", cfg.FOV,
		"strategy", cfg.Strategy,
		"out", cfg.OutDir)

	sv, err := streetview.New(log, httpclient.NewOutbound(cfg.HTTPTimeout), cfg.BaseURL, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("street view client: %w", err)
	}
	res := resolver.New(log, sv, cfg.CacheSize)

	spec := model.GridSpec{Center: cfg.Centre, Side: cfg.Side, Step: cfg.Step}
	log.Info("sampling grid", "points", sampler.Count(spec))

	records := dedup.Unique(ctx, log, sampler.Points(spec), res.Resolve)
	if err := ctx.Err(); err != nil {
		return err
	}

	var strat store.Strategy
	switch cfg.Strategy {
	case config.StrategyGlued:
		strat = store.NewGlued(log, cfg.OutDir, cfg.SeamWrap)
	default:
		strat = store.NewSimple(log, cfg.OutDir)
	}

	var ov catalogue.OverlayFunc
	if cfg.KML {
		ov = overlay.WriteKML
	}

	cat := catalogue.New(log, catalogue.Params{
		Dir:      cfg.OutDir,
		FOV:      cfg.FOV,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Workers:  cfg.Concurrency,
		Strategy: strat,
		Acquirer: imagery.NewAcquirer(log, sv),
		Overlay:  ov,
	})
	if err := cat.Add(ctx, records); err != nil {
		log.Error("crawl failed", "err", err)
		return err
	}

	log.Info("crawl complete")
	return nil
}
