package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"decraft.ai/internal/persistence/indexdb"
	"decraft.ai/internal/sim/catalogs"
	"decraft.ai/internal/sim/tuning"
	"decraft.ai/internal/uncraft/service"
)

type runtimeIndex interface {
	service.Sink
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	Stats() indexdb.Stats
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("DECRAFT_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "uncraft.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported DECRAFT_INDEX_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
