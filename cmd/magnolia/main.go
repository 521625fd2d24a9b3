// Command magnolia grows a cylindrical bud arrangement, serves it over
// HTTP, and records the run to SQLite.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/magnolia/internal/api"
	"github.com/talgya/magnolia/internal/engine"
	"github.com/talgya/magnolia/internal/entropy"
	"github.com/talgya/magnolia/internal/meristem"
	"github.com/talgya/magnolia/internal/persistence"
	"github.com/talgya/magnolia/internal/positioner"
)

func main() {
	configPath := flag.String("config", "", "TOML config file (defaults apply when empty)")
	flag.Parse()

	// Text logs on a terminal, JSON when piped or under a supervisor.
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	conf := DefaultConf
	if *configPath != "" {
		var err error
		conf, err = ParseConfig(*configPath)
		if err != nil {
			slog.Error("failed to parse config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if err := conf.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	pos, err := buildPositioner(conf)
	if err != nil {
		slog.Error("failed to build positioner", "error", err)
		os.Exit(1)
	}

	session := engine.NewSession(pos, conf.Positioner, conf.RefreshNeighbours)

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	var runID string
	if conf.DBPath != "" {
		os.MkdirAll(filepath.Dir(conf.DBPath), 0755)
		db, err = persistence.Open(conf.DBPath)
		if err != nil {
			slog.Error("failed to open database", "path", conf.DBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		runID, err = db.CreateRun(conf.Positioner, conf)
		if err != nil {
			slog.Error("failed to record run", "error", err)
			os.Exit(1)
		}
		slog.Info("database opened", "path", conf.DBPath, "run", runID)

		seq := 0
		session.OnPlace(func(b *meristem.Bud) {
			if err := db.AppendBud(runID, seq, b); err != nil {
				slog.Error("bud persistence failed", "seq", seq, "error", err)
			}
			seq++
		})
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.MaxBuds = conf.Buds
	if conf.Speed > 0 {
		eng.Interval = time.Duration(float64(time.Second) / conf.Speed)
	} else {
		eng.Interval = 0
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if conf.APIPort > 0 {
		adminKey := os.Getenv("MAGNOLIA_ADMIN_KEY")
		if adminKey == "" {
			slog.Warn("MAGNOLIA_ADMIN_KEY not set — admin POST endpoints will be disabled")
		}
		apiServer := &api.Server{
			Session:  session,
			Eng:      eng,
			DB:       db,
			Port:     conf.APIPort,
			AdminKey: adminKey,
		}
		apiServer.Start()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", conf.APIPort)
	}

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	started := time.Now()
	fmt.Printf("Growing %s buds with the %s positioner (seed %d). Ctrl+C to stop.\n",
		humanize.Comma(int64(conf.Buds)), conf.Positioner, conf.Seed)

	if err := eng.Run(session); err != nil {
		slog.Error("growth failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Placed %s buds in %s (stem height %.2f, widest radius %.2f).\n",
		humanize.Comma(int64(session.Len())),
		humanize.RelTime(started, time.Now(), "", ""),
		session.Height(), session.Radius())
}

// buildPositioner constructs the configured placement algorithm.
func buildPositioner(conf *Config) (positioner.Positioner, error) {
	switch conf.Positioner {
	case "ring":
		var opts []positioner.RingOption
		if conf.RingHeight > 0 {
			opts = append(opts, positioner.WithRingHeight(conf.RingHeight))
		}
		return positioner.NewRing(rad(conf.RingAngle), conf.PerRing, opts...), nil

	case "changing-ring":
		var opts []positioner.RingOption
		if conf.RingHeight > 0 {
			opts = append(opts, positioner.WithRingHeight(conf.RingHeight))
		}
		return positioner.NewChangingRing(rad(conf.RingAngle), conf.PerRing, conf.Delta, conf.ShrinkRadius, opts...), nil

	case "angle":
		return positioner.NewAngle(rad(conf.Divergence), conf.PerRing), nil

	case "lowest":
		var src entropy.Source
		switch conf.Noise {
		case "simplex":
			src = entropy.NewSimplex(conf.Seed, 0)
		case "remote":
			// Not reproducible; the run record still stores every placement.
			if remote := entropy.NewRemote(os.Getenv("RANDOM_ORG_KEY")); remote != nil {
				src = remote
			} else {
				slog.Warn("RANDOM_ORG_KEY not set, falling back to seeded noise")
				src = entropy.NewSeeded(conf.Seed)
			}
		default:
			src = entropy.NewSeeded(conf.Seed)
		}
		return positioner.NewLowestAvailable(conf.StartSize, conf.Decay, conf.Jitter, src), nil
	}
	return nil, fmt.Errorf("unknown positioner %q", conf.Positioner)
}
