package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"voxelguard.ai/internal/persistence/indexdb"
	persistlog "voxelguard.ai/internal/persistence/log"
	"voxelguard.ai/internal/sim/catalogs"
	"voxelguard.ai/internal/sim/tuning"
	"voxelguard.ai/internal/sim/world"
)

var errStop = errors.New("stop")

// replay re-runs a world's tick log from tick 0 and verifies every state and
// detection digest. World parameters must match the ones the server used.
func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		worldID    = flag.String("world", "world_1", "world id")
		eventsDir  = flag.String("events", "", "events dir (default: <data>/worlds/<world>/events)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 1337, "world seed used by the server")
		noNPCs     = flag.Bool("no_npcs", false, "the server ran without default NPCs")
		useDB      = flag.Bool("overrides", true, "apply config overrides stored in the world's sqlite index")
		toTick     = flag.Uint64("to_tick", 0, "stop after tick (inclusive, optional)")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}
	tp := *tuningPath
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	var provider tuning.Provider = tune
	if *useDB {
		dbPath := filepath.Join(worldDir, "index", "world.sqlite")
		if _, err := os.Stat(dbPath); err == nil {
			idx, err := indexdb.OpenSQLite(dbPath, indexdb.Options{WorldID: *worldID})
			if err != nil {
				fmt.Fprintln(os.Stderr, "open index:", err)
				os.Exit(1)
			}
			over, err := idx.LoadOverrides(context.Background())
			_ = idx.Close()
			if err != nil {
				fmt.Fprintln(os.Stderr, "load overrides:", err)
				os.Exit(1)
			}
			if len(over) > 0 {
				fmt.Printf("applying %d config overrides\n", len(over))
				provider = tuning.Layered{Over: over, Base: tune}
			}
		}
	}

	cfg := world.WorldConfig{
		ID:         *worldID,
		TickRateHz: tune.TickRateHz,
		Seed:       *seed,
		BoundaryR:  tune.WorldBoundaryR,
		SurfaceY:   tune.SurfaceY,
		EyeHeight:  tune.EyeHeight,
	}
	if !*noNPCs {
		cfg.NPCs = world.DefaultNPCs(tune.SurfaceY)
	}
	w, err := world.New(cfg, cats, world.Options{Config: provider})
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	dir := *eventsDir
	if dir == "" {
		dir = filepath.Join(worldDir, "events")
	}

	var checked, detections uint64
	err = persistlog.ReadTickLog(dir, func(entry world.TickLogEntry) error {
		if *toTick != 0 && entry.Tick > *toTick {
			return errStop
		}
		res, err := w.Replay(entry)
		if err != nil {
			return err
		}
		checked++
		detections += uint64(len(res.Detections))
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks detections=%d\n", checked, detections)
}
