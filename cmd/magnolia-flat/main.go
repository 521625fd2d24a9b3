// Command magnolia-flat renders a recorded growth run as an unrolled
// SVG: the cylinder cut along ±π and flattened, buds as circles, with
// the packing front and the spiral axes overlaid.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/talgya/magnolia/internal/flatview"
	"github.com/talgya/magnolia/internal/geometry"
	"github.com/talgya/magnolia/internal/graph"
	"github.com/talgya/magnolia/internal/meristem"
	"github.com/talgya/magnolia/internal/persistence"
)

func main() {
	dbPath := flag.String("db", "data/magnolia.db", "SQLite database with recorded runs")
	runID := flag.String("run", "", "run id to render, empty picks the most recent")
	out := flag.String("out", "flat.svg", "output SVG path")
	showFront := flag.Bool("front", true, "highlight the packing front")
	showAxes := flag.Bool("axes", true, "overlay the spiral axes")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	run, err := pickRun(db, *runID)
	if err != nil {
		slog.Error("failed to find run", "error", err)
		os.Exit(1)
	}

	rows, err := db.LoadBuds(run.ID)
	if err != nil {
		slog.Error("failed to load buds", "run", run.ID, "error", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		slog.Error("run has no buds", "run", run.ID)
		os.Exit(1)
	}

	// Rebuild the meristem and its graph from the recorded placements.
	m := meristem.New()
	for _, row := range rows {
		m.Add(row.Angle, row.Height, row.Radius, row.Scale)
	}
	g := graph.New(m, false)
	g.Rebuild()

	view := &flatview.View{Buds: m.Buds()}

	if *showFront {
		front, err := frontBuds(m)
		if err != nil {
			slog.Warn("front not drawable", "error", err)
		} else {
			view.Front = front
		}
	}

	if *showAxes {
		for _, h := range g.AllAxes() {
			if axis := g.OnLine(h); len(axis) > 1 {
				view.Axes = append(view.Axes, axis)
			}
		}
	}

	f, err := os.Create(*out)
	if err != nil {
		slog.Error("failed to create output", "path", *out, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	view.Render(f)

	fmt.Printf("Rendered %s buds of run %s (%s, %s) to %s.\n",
		humanize.Comma(int64(len(rows))), run.ID, run.Positioner,
		humanize.Time(run.CreatedAt), *out)
}

// pickRun resolves the requested run, falling back to the newest.
func pickRun(db *persistence.DB, id string) (*persistence.Run, error) {
	if id != "" {
		return db.GetRun(id)
	}
	runs, err := db.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no recorded runs in database")
	}
	return &runs[0], nil
}

// frontBuds computes the packing front over the rebuilt meristem.
func frontBuds(m *meristem.Meristem) ([]*meristem.Bud, error) {
	buds := m.Buds()
	circles := make([]geometry.Circle, len(buds))
	byCircle := make(map[geometry.Circle][]*meristem.Bud, len(buds))
	for i, b := range buds {
		circles[i] = b.Circle()
		byCircle[circles[i]] = append(byCircle[circles[i]], b)
	}

	front, err := geometry.Front(circles)
	if err != nil {
		return nil, err
	}

	out := make([]*meristem.Bud, 0, len(front))
	for _, c := range front {
		if matches := byCircle[c]; len(matches) > 0 {
			out = append(out, matches[0])
			byCircle[c] = matches[1:]
		}
	}
	return out, nil
}
