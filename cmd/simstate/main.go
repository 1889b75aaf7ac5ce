package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/simstate/observability"
	"github.com/tailored-agentic-units/simstate/savegame"
	"github.com/tailored-agentic-units/simstate/sim"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Path to config JSON file (defaults plus SIMSTATE_* environment when empty)")
		scenarioFile = flag.String("scenario", "", "Path to scenario YAML file (required)")
		frames       = flag.Int("frames", 0, "Frames to run; 0 uses the scenario, then the config")
		saveSlot     = flag.String("save", "", "Save slot written after the run")
		loadSlot     = flag.String("load", "", "Save slot to resume from instead of building the scenario")
		verify       = flag.Bool("verify", false, "Check the final save round-trips and the run is deterministic")
		metricsFile  = flag.String("metrics", "", "Prometheus textfile written after the run (overrides config)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if *scenarioFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: simstate -scenario <file> [-config <file>] [-save <slot>] [-load <slot>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := sim.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *metricsFile != "" {
		cfg.MetricsFile = *metricsFile
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	configured, err := observability.GetObserver(cfg.Machine.Observer)
	if err != nil {
		log.Fatalf("Failed to create observer: %v", err)
	}
	registry := prometheus.NewRegistry()
	metrics, err := observability.NewPrometheusObserver(registry)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}
	observer := observability.NewMultiObserver(configured, metrics)

	sc, err := sim.LoadScenario(*scenarioFile)
	if err != nil {
		log.Fatalf("Failed to load scenario: %v", err)
	}
	runCfg := sc.Config(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := savegame.NewStore(ctx, &runCfg.Save)
	if err != nil {
		log.Fatalf("Failed to open save store: %v", err)
	}
	defer store.Close()

	var world *sim.World
	if *loadSlot != "" {
		var header *savegame.Header
		world, header, err = sim.Load(ctx, store, *loadSlot, &runCfg, sim.WithObserver(observer))
		if err != nil {
			log.Fatalf("Failed to load save: %v", err)
		}
		if header.Scenario != sc.Name {
			log.Fatalf("Save %s belongs to scenario %q, not %q", *loadSlot, header.Scenario, sc.Name)
		}
		fmt.Printf("Loaded %s (%s) at frame %d\n", *loadSlot, header.SaveID, header.Frame)
	} else {
		world, err = sc.Build(&runCfg, sim.WithObserver(observer))
		if err != nil {
			log.Fatalf("Failed to build scenario: %v", err)
		}
	}

	n := *frames
	if n <= 0 {
		n = sc.Frames
	}
	if n <= 0 {
		n = runCfg.Frames
	}

	var start []byte
	if *verify {
		if start, _, err = world.Encode("verify"); err != nil {
			log.Fatalf("Failed to snapshot start state: %v", err)
		}
	}

	trace, err := sim.Run(world, sc, n)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	report(os.Stdout, world, trace)

	if *saveSlot != "" {
		description := fmt.Sprintf("%s at frame %d", sc.Name, world.Frame())
		header, err := world.Save(ctx, store, *saveSlot, description)
		if err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		fmt.Printf("\nSaved %s (%s)\n", *saveSlot, header.SaveID)
	}

	if *verify {
		if err := verifyRun(world, start, sc, n, &runCfg); err != nil {
			log.Fatalf("Verification failed: %v", err)
		}
		fmt.Println("\nVerified: save round-trips and replay is deterministic")
	}

	if runCfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(runCfg.MetricsFile, registry); err != nil {
			log.Fatalf("Failed to write metrics: %v", err)
		}
	}
}

// verifyRun decodes a save of the final world and re-encodes it byte for
// byte, then replays the run twice from its starting save.
func verifyRun(world *sim.World, start []byte, sc *sim.Scenario, frames int, cfg *sim.Config) error {
	final, _, err := world.Encode("verify")
	if err != nil {
		return err
	}
	loaded, _, err := sim.Decode(final, cfg)
	if err != nil {
		return fmt.Errorf("decode final save: %w", err)
	}
	if err := loaded.Verify(final); err != nil {
		return fmt.Errorf("round trip: %w", err)
	}
	return sim.VerifyDeterminism(start, sc, frames, cfg)
}
