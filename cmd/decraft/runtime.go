package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"decraft.ai/internal/sim/catalogs"
	"decraft.ai/internal/sim/tuning"
	"decraft.ai/internal/uncraft/handler"
	"decraft.ai/internal/uncraft/handler/external"
	"decraft.ai/internal/uncraft/service"
)

type runtime struct {
	cats  *catalogs.Catalogs
	tune  tuning.Tuning
	store *tuning.Store
	reg   *handler.Registry
	log   *zap.Logger
}

func cliLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolvedTuningPath() string {
	if p := strings.TrimSpace(tuningPath); p != "" {
		return p
	}
	return filepath.Join(configDir, "uncrafting.yaml")
}

func loadRuntime() (*runtime, error) {
	log := cliLogger()
	cats, err := catalogs.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	tune, err := tuning.Load(resolvedTuningPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load tuning: %w", err)
		}
		log.Debug("tuning not found; using defaults", zap.String("path", resolvedTuningPath()))
		tune = tuning.Defaults()
	}

	reg := handler.NewDefaultRegistry(log)
	external.Register(reg, external.NewMods(tune.EnabledMods()...),
		external.Deps{Ores: cats.Ores.Dict, Mappings: cats.Mappings}, log)

	return &runtime{
		cats:  cats,
		tune:  tune,
		store: tuning.NewStore(tune),
		reg:   reg,
		log:   log,
	}, nil
}

func (r *runtime) uncrafter(sinks ...service.Sink) *service.Uncrafter {
	return service.New(r.reg, r.cats.Recipes, r.store, r.log, service.WithSinks(sinks...))
}

// catalogDigest folds the per-file digests into one value.
func catalogDigest(c *catalogs.Catalogs) string {
	h := sha256.New()
	for _, d := range []string{c.Items.PaletteDigest, c.Items.DefsDigest, c.Recipes.Digest, c.Ores.Digest, c.Mappings.Digest} {
		h.Write([]byte(d))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
