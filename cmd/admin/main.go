package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxelguard.ai/internal/persistence/indexdb"
	persistlog "voxelguard.ai/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "tps":
			tpsCmd(os.Args[2:])
			return
		case "flags":
			flagsCmd(os.Args[2:])
			return
		case "config":
			configCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "worlds"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

// dbCmd queries the sqlite index offline: flags, sessions or corrections.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	actor := fs.String("actor", "", "actor id filter")
	kind := fs.String("kind", "", "detection kind filter (flags)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "flags"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}
	idx, err := indexdb.OpenSQLite(path, indexdb.Options{WorldID: *worldID})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx := context.Background()
	var out any
	switch q {
	case "flags":
		out, err = idx.RecentFlags(ctx, indexdb.FlagQuery{ActorID: *actor, Kind: *kind, Limit: *limit})
	case "counts":
		out, err = idx.FlagCounts(ctx)
	case "sessions":
		out, err = idx.OpenSessions(ctx)
	case "corrections":
		out, err = idx.Corrections(ctx, *actor, *limit)
	case "overrides":
		out, err = idx.LoadOverrides(ctx)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(out)
}

// auditCmd prints flags from the compressed JSONL trail, optionally
// filtered, without needing the sqlite index.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "world_1", "world id")
	actor := fs.String("actor", "", "actor id filter")
	kind := fs.String("kind", "", "detection kind filter")
	_ = fs.Parse(args)

	recs, err := persistlog.ReadFlags(filepath.Join(*dataDir, "worlds", *worldID, "flags"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read flags:", err)
		os.Exit(1)
	}
	n := 0
	for _, r := range recs {
		if *actor != "" && r.ActorID != *actor {
			continue
		}
		if *kind != "" && string(r.Kind) != *kind {
			continue
		}
		b, _ := json.Marshal(r)
		fmt.Println(string(b))
		n++
	}
	fmt.Fprintf(os.Stderr, "%d flags\n", n)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
