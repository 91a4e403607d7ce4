package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	persistlog "decraft.ai/internal/persistence/log"
	"decraft.ai/internal/protocol"
	"decraft.ai/internal/sim/catalogs"
	"decraft.ai/internal/sim/tuning"
	"decraft.ai/internal/transport/ws"
	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/handler/external"
	"decraft.ai/internal/uncraft/service"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to uncrafting.yaml (default: <configs>/uncrafting.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")
		noLog      = flag.Bool("disable_resolution_log", false, "disable the JSONL resolution log")
		watch      = flag.Bool("watch", true, "reload uncrafting.yaml when it changes")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(serverConfig{
		Addr:        *addr,
		ConfigDir:   *configDir,
		DataDir:     *dataDir,
		TuningPath:  *tuningPath,
		DisableDB:   *disableDB,
		DisableLog:  *noLog,
		Watch:       *watch,
		EnableAdmin: envBool("DECRAFT_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		EnablePprof: envBool("DECRAFT_ENABLE_PPROF_HTTP", false),
	}, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

type serverConfig struct {
	Addr        string
	ConfigDir   string
	DataDir     string
	TuningPath  string
	DisableDB   bool
	DisableLog  bool
	Watch       bool
	EnableAdmin bool
	EnablePprof bool
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func run(cfg serverConfig, logger *zap.Logger) error {
	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}

	tp := strings.TrimSpace(cfg.TuningPath)
	if tp == "" {
		tp = filepath.Join(cfg.ConfigDir, "uncrafting.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load tuning: %w", err)
		}
		logger.Warn("tuning not found; using defaults", zap.String("path", tp))
		tune = tuning.Defaults()
	}
	store := tuning.NewStore(tune)

	reg := handler.NewDefaultRegistry(logger)
	n := external.Register(reg, external.NewMods(tune.EnabledMods()...),
		external.Deps{Ores: cats.Ores.Dict, Mappings: cats.Mappings}, logger)
	logger.Info("handlers registered", zap.Int("external", n), zap.Strings("kinds", reg.SortedKinds()))

	var sinks []service.Sink
	idx, err := openRuntimeIndex(cfg.DataDir, cfg.DisableDB)
	if err != nil {
		return fmt.Errorf("open index backend: %w", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cfg.ConfigDir, cats, tune); err != nil {
			logger.Warn("index backend: upsert catalogs", zap.Error(err))
		}
		sinks = append(sinks, idx)
	}
	var resLog *persistlog.ResolutionLogger
	if !cfg.DisableLog {
		resLog = persistlog.NewResolutionLogger(cfg.DataDir, logger)
		defer resLog.Close()
		sinks = append(sinks, resLog)
	}

	unc := service.New(reg, cats.Recipes, store, logger, service.WithSinks(sinks...))

	ctx, cancel := signalContext()
	defer cancel()

	var watcher *tuning.Watcher
	if cfg.Watch {
		watcher, err = tuning.NewWatcher(tp, store, logger, tuning.OnReload(func(t tuning.Tuning) {
			unc.Purge()
			if idx != nil {
				if err := idx.UpsertCatalogs(cfg.ConfigDir, cats, t); err != nil {
					logger.Warn("index backend: upsert catalogs", zap.Error(err))
				}
			}
		}))
		if err != nil {
			return fmt.Errorf("config watcher: %w", err)
		}
		defer watcher.Stop()
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher disabled", zap.Error(err))
		}
	}

	wsSrv := ws.NewServer(ws.Options{
		Uncrafter:   unc,
		Tuning:      store,
		Items:       cats.Items,
		RecipeKinds: reg.SortedKinds(),
		Catalogs: protocol.CatalogDigests{
			ItemPalette:    protocol.DigestRef{Digest: cats.Items.PaletteDigest, Count: len(cats.Items.Palette)},
			RecipesDigest:  cats.Recipes.Digest,
			OredictDigest:  cats.Ores.Digest,
			MappingsDigest: cats.Mappings.Digest,
		},
		Logger: logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"ok":       true,
			"recipes":  len(cats.Recipes.ByID),
			"handlers": reg.Len(),
			"tuning":   store.Get().Digest(),
		})
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, metricsSource{ws: wsSrv, unc: unc, idx: idx, resLog: resLog})
	})
	if cfg.EnableAdmin {
		mux.HandleFunc("/admin/v1/config/reload", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if r.Method != http.MethodPost {
				http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			if watcher == nil || !watcher.Reload() {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "digest": store.Get().Digest()})
		})
		mux.HandleFunc("/admin/v1/cache/purge", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			n := unc.CachedCount()
			unc.Purge()
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "purged": n})
		})
	} else {
		logger.Info("admin endpoints disabled (DECRAFT_ENABLE_ADMIN_HTTP=false)")
	}
	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	return g.Wait()
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

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
