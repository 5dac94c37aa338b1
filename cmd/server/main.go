package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"emberveil.gg/internal/chain"
	"emberveil.gg/internal/persistence/charstore"
	"emberveil.gg/internal/persistence/eventlog"
	"emberveil.gg/internal/protocol"
	"emberveil.gg/internal/sim/catalogs"
	"emberveil.gg/internal/sim/tuning"
	"emberveil.gg/internal/sim/world"
	"emberveil.gg/internal/sim/zonecfg"
	"emberveil.gg/internal/transport/ws"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		configDir    = flag.String("configs", "./configs", "config directory")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		zonesPath    = flag.String("zones", "", "path to zones.yaml (default: <configs>/zones.yaml)")
		seed         = flag.Int64("seed", 1337, "loot/spawn rng seed")
		disableDB    = flag.Bool("disable_db", false, "disable the character store")
		chainWorkers = flag.Int("chain_workers", 2, "mint dispatcher workers")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	zp := strings.TrimSpace(*zonesPath)
	if zp == "" {
		zp = filepath.Join(*configDir, "zones.yaml")
	}
	topo, err := zonecfg.Load(zp)
	if err != nil {
		logger.Fatalf("load zones: %v", err)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	eventSink := eventlog.NewSink(filepath.Join(*dataDir, "events"), "events", logger)
	defer eventSink.Close()
	diarySink := eventlog.NewSink(filepath.Join(*dataDir, "events"), "diary", logger)
	defer diarySink.Close()

	w, err := world.New(tune, cats, topo, *seed, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	w.SetEvents(eventlog.NewRing(tune.EventRingSize, eventSink))
	w.SetDiary(eventlog.NewRing(tune.DiaryRingSize, diarySink))

	minter := chain.NewDispatcher(
		chain.NewLogBackend(log.New(os.Stdout, "[chain] ", log.LstdFlags)),
		*chainWorkers,
		logger,
	)
	w.SetMinter(minter)

	var store *charstore.SQLiteStore
	var loader ws.CharacterLoader
	if !*disableDB {
		store, err = charstore.Open(filepath.Join(*dataDir, "characters.db"), log.New(os.Stdout, "[charstore] ", log.LstdFlags))
		if err != nil {
			logger.Fatalf("open character store: %v", err)
		}
		w.SetSaver(store)
		loader = store
	}

	wsSrv := ws.NewServer(w, loader, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})

	httpSrv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s (protocol %s, tick %dHz)", *addr, protocol.Version, tune.TickRateHz)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	worldDone := make(chan error, 1)
	go func() { worldDone <- w.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	loopExited := false
	select {
	case sig := <-sigCh:
		logger.Printf("received %v, shutting down", sig)
	case err := <-worldDone:
		loopExited = true
		logger.Printf("world loop exited: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	w.Stop()
	cancel()
	if !loopExited {
		<-worldDone
	}

	// Final persistence flush: the loop is stopped, so touching world
	// state is safe, and Close drains the save queue before returning.
	w.FlushAll()
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Printf("close character store: %v", err)
		}
	}
	minter.Close()
	logger.Printf("shutdown complete")
}
