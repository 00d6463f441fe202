package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"voxelguard.ai/internal/persistence/indexdb"
	persistlog "voxelguard.ai/internal/persistence/log"
	"voxelguard.ai/internal/sim/catalogs"
	"voxelguard.ai/internal/sim/integrity/host"
	"voxelguard.ai/internal/sim/tuning"
	"voxelguard.ai/internal/sim/world"
	"voxelguard.ai/internal/transport/observer"
	"voxelguard.ai/internal/transport/ws"
)

// serverConfig is filled from flags first; VG_* variables override.
type serverConfig struct {
	Addr        string `env:"VG_ADDR"`
	WorldID     string `env:"VG_WORLD"`
	Seed        int64  `env:"VG_SEED"`
	ConfigDir   string `env:"VG_CONFIG_DIR"`
	DataDir     string `env:"VG_DATA_DIR"`
	TuningPath  string `env:"VG_TUNING"`
	DisableDB   bool   `env:"VG_DISABLE_DB"`
	EnableAdmin bool   `env:"VG_ENABLE_ADMIN_HTTP"`
	// Operators maps handshake tokens to tags: "token=op|dev,token2=op".
	Operators string `env:"VG_OPERATORS"`
	NoNPCs    bool   `env:"VG_NO_NPCS"`
}

func main() {
	var cfg serverConfig
	flag.StringVar(&cfg.Addr, "addr", ":8080", "http listen address")
	flag.StringVar(&cfg.WorldID, "world", "world_1", "world id")
	flag.Int64Var(&cfg.Seed, "seed", 1337, "world seed")
	flag.StringVar(&cfg.ConfigDir, "configs", "./configs", "config directory")
	flag.StringVar(&cfg.DataDir, "data", "./data", "runtime data directory")
	flag.StringVar(&cfg.TuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	flag.BoolVar(&cfg.DisableDB, "disable_db", false, "disable the sqlite flag/session index")
	flag.BoolVar(&cfg.EnableAdmin, "admin_http", true, "serve /admin/v1 endpoints to loopback clients")
	flag.StringVar(&cfg.Operators, "operators", "", "operator tokens, token=tag|tag,...")
	flag.BoolVar(&cfg.NoNPCs, "no_npcs", false, "do not spawn the default NPCs")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	if err := env.Parse(&cfg); err != nil {
		logger.Fatalf("parse env: %v", err)
	}

	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(cfg.TuningPath)
	if tp == "" {
		tp = filepath.Join(cfg.ConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	worldDir := filepath.Join(cfg.DataDir, "worlds", cfg.WorldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	// Optional read-model index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	initial := tuning.Overrides{}
	if !cfg.DisableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"), indexdb.Options{WorldID: cfg.WorldID})
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if initial, err = idx.LoadOverrides(context.Background()); err != nil {
			logger.Fatalf("load overrides: %v", err)
		}
		for _, k := range initial.Keys() {
			logger.Printf("config override %s=%s", k, initial[k])
		}
	}
	live := tuning.NewLiveOverrides(tune, initial)

	flagLog := persistlog.NewFlagLogger(worldDir, cfg.WorldID)
	defer flagLog.Close()
	feed := observer.NewServer(log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds))
	sinks := host.MultiSink{flagLog, feed}
	if idx != nil {
		sinks = append(sinks, idx)
	}

	wcfg := world.WorldConfig{
		ID:         cfg.WorldID,
		TickRateHz: tune.TickRateHz,
		Seed:       cfg.Seed,
		BoundaryR:  tune.WorldBoundaryR,
		SurfaceY:   tune.SurfaceY,
		EyeHeight:  tune.EyeHeight,
	}
	if !cfg.NoNPCs {
		wcfg.NPCs = world.DefaultNPCs(tune.SurfaceY)
	}
	w, err := world.New(wcfg, cats, world.Options{
		Config: live.Provider(),
		Sink:   sinks,
		Logger: log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds),
	})
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	w.SetTickLogger(tickLog)
	if idx != nil {
		w.SetCorrectionLogger(idx)
		w.SetSessionLogger(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	wsSrv, err := ws.NewServer(w, ws.Options{
		Logger: log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds),
		Grants: operatorGrants(cfg.Operators),
	})
	if err != nil {
		logger.Fatalf("ws: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	if cfg.EnableAdmin {
		api := &adminAPI{worldID: cfg.WorldID, w: w, idx: idx, live: live, flagLog: flagLog, logger: logger}
		api.register(mux)
		mux.HandleFunc("/admin/v1/observer/bootstrap", feed.BootstrapHandler(w))
		mux.HandleFunc("/admin/v1/observer/ws", feed.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s world=%s seed=%d tick_rate=%d", cfg.Addr, cfg.WorldID, cfg.Seed, tune.TickRateHz)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
