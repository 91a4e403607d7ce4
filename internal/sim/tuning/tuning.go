package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"decraft.ai/internal/uncraft/item"
)

const MaxLevel = 50

// UncraftMethod selects how enchantments/damage are priced when uncrafting.
// The grid extraction itself does not depend on it; it is forwarded to clients.
type UncraftMethod int

const (
	MethodJGLRXavpok UncraftMethod = 0
	MethodXell75     UncraftMethod = 1
)

func (m UncraftMethod) String() string {
	switch m {
	case MethodJGLRXavpok:
		return "jglrxavpok"
	case MethodXell75:
		return "xell75-zenen"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

type Tuning struct {
	StandardLevel int           `yaml:"standard_level" json:"standard_level"`
	MaxUsedLevel  int           `yaml:"max_used_level" json:"max_used_level"`
	UncraftMethod UncraftMethod `yaml:"uncraft_method" json:"uncraft_method"`
	ExcludedItems []string      `yaml:"excluded_items" json:"excluded_items"`

	Updates Updates `yaml:"updates" json:"updates"`

	// Adapters switches individual third-party recipe adapters off. Missing
	// entries are enabled.
	Adapters   map[string]bool `yaml:"adapters" json:"adapters"`
	LoadedMods []string        `yaml:"loaded_mods" json:"loaded_mods"`

	CacheTTLSeconds int         `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
	UncraftRate     UncraftRate `yaml:"uncraft_rate" json:"uncraft_rate"`
}

type Updates struct {
	CheckForUpdates      bool `yaml:"check_for_updates" json:"check_for_updates"`
	PromptForLatest      bool `yaml:"prompt_for_latest" json:"prompt_for_latest"`
	PromptForRecommended bool `yaml:"prompt_for_recommended" json:"prompt_for_recommended"`
}

// UncraftRate limits UNCRAFT requests per connection.
type UncraftRate struct {
	PerSec float64 `yaml:"per_sec" json:"per_sec"`
	Burst  int     `yaml:"burst" json:"burst"`
}

func Defaults() Tuning {
	return Tuning{
		StandardLevel: 5,
		MaxUsedLevel:  30,
		UncraftMethod: MethodJGLRXavpok,
		Updates: Updates{
			CheckForUpdates:      true,
			PromptForRecommended: true,
		},
		CacheTTLSeconds: 300,
		UncraftRate:     UncraftRate{PerSec: 10, Burst: 20},
	}
}

// Load reads path over Defaults and validates the result.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("uncrafting.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("uncrafting.yaml: %w", err)
	}
	return t, nil
}

// Validate clamps levels into range and rejects values that cannot be
// corrected.
func (t *Tuning) Validate() error {
	t.StandardLevel = clamp(t.StandardLevel, 0, MaxLevel)
	t.MaxUsedLevel = clamp(t.MaxUsedLevel, 0, MaxLevel)
	if t.MaxUsedLevel < t.StandardLevel {
		t.MaxUsedLevel = t.StandardLevel
	}
	if t.UncraftMethod != MethodJGLRXavpok && t.UncraftMethod != MethodXell75 {
		return fmt.Errorf("uncraft_method: unknown value %d", int(t.UncraftMethod))
	}
	if t.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds: must be >= 0")
	}
	if t.UncraftRate.PerSec < 0 || t.UncraftRate.Burst < 0 {
		return fmt.Errorf("uncraft_rate: must be >= 0")
	}
	for _, k := range t.ExcludedItems {
		if _, _, ok := item.ParseKey(strings.TrimSpace(k)); !ok {
			return fmt.Errorf("excluded_items: bad item %q", k)
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Digest is the sha256 of the config's JSON form; map keys marshal sorted.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// EnabledMods is LoadedMods minus adapters switched off, lowercased and sorted.
func (t Tuning) EnabledMods() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(t.LoadedMods))
	for _, m := range t.LoadedMods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		if on, ok := t.Adapters[m]; ok && !on {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Excluded reports whether s matches an excluded_items entry. A bare id
// matches every meta, "id:meta" only that meta; a wildcard meta counts as 0
// on both sides unless the entry spells the wildcard out.
func (t Tuning) Excluded(s item.Stack) bool {
	if s.IsEmpty() {
		return false
	}
	meta := s.Normalized().Meta
	for _, k := range t.ExcludedItems {
		k = strings.TrimSpace(k)
		id, m, ok := item.ParseKey(k)
		if !ok || id != s.ID {
			continue
		}
		if id == k || m == item.WildcardMeta || m == meta {
			return true
		}
	}
	return false
}

// Store holds the live config. Readers never see a partially applied reload.
type Store struct {
	cur atomic.Pointer[Tuning]
}

func NewStore(t Tuning) *Store {
	s := &Store{}
	s.Set(t)
	return s
}

func (s *Store) Get() Tuning {
	return *s.cur.Load()
}

func (s *Store) Set(t Tuning) {
	t.ExcludedItems = append([]string(nil), t.ExcludedItems...)
	t.LoadedMods = append([]string(nil), t.LoadedMods...)
	if t.Adapters != nil {
		m := make(map[string]bool, len(t.Adapters))
		for k, v := range t.Adapters {
			m[k] = v
		}
		t.Adapters = m
	}
	s.cur.Store(&t)
}
