package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"decraft.ai/internal/uncraft/grid"
	"decraft.ai/internal/uncraft/item"
	"decraft.ai/internal/uncraft/service"
)

const TableVersion = 1

// Header is written as a JSON line ahead of the gob body so tools can read it
// without decoding the table.
type Header struct {
	Version       int       `json:"version"`
	CatalogDigest string    `json:"catalog_digest"`
	TuningDigest  string    `json:"tuning_digest,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Entries       int       `json:"entries"`
}

// TableV1 is the precomputed uncraft table: one entry per recipe, ordered by
// recipe id.
type TableV1 struct {
	Header  Header    `json:"header"`
	Entries []EntryV1 `json:"entries"`
}

type EntryV1 struct {
	RecipeID string            `json:"recipe_id"`
	Kind     string            `json:"kind"`
	Output   StackV1           `json:"output"`
	Slots    [grid.Size]StackV1 `json:"slots"`
	Error    string            `json:"error,omitempty"`
}

func (e EntryV1) OK() bool { return e.Error == "" }

func (e EntryV1) Grid() grid.Grid {
	var g grid.Grid
	for i, s := range e.Slots {
		g[i] = s.Stack()
	}
	return g
}

// StackV1 keeps the tag as JSON; gob cannot encode arbitrary tag values.
type StackV1 struct {
	ID    string `json:"id,omitempty"`
	Count int    `json:"count,omitempty"`
	Meta  int    `json:"meta,omitempty"`
	Tag   []byte `json:"tag,omitempty"`
}

func StackFrom(s item.Stack) StackV1 {
	if s.IsEmpty() {
		return StackV1{}
	}
	out := StackV1{ID: s.ID, Count: s.Count, Meta: s.Meta}
	if len(s.Tag) > 0 {
		out.Tag, _ = json.Marshal(s.Tag)
	}
	return out
}

func (s StackV1) Stack() item.Stack {
	if s.ID == "" {
		return item.Empty()
	}
	out := item.Stack{ID: s.ID, Count: s.Count, Meta: s.Meta}
	if len(s.Tag) > 0 {
		var t item.Tag
		if err := json.Unmarshal(s.Tag, &t); err == nil {
			out.Tag = t
		}
	}
	return out
}

func EntryFrom(r service.Resolution) EntryV1 {
	e := EntryV1{
		RecipeID: r.RecipeID,
		Kind:     r.Kind,
		Output:   StackFrom(r.Output),
		Error:    r.Error,
	}
	if r.Grid != nil {
		for i, s := range r.Grid {
			e.Slots[i] = StackFrom(s)
		}
	}
	return e
}

// ByOutput returns the entries producing itemID in table order.
func (t TableV1) ByOutput(itemID string) []EntryV1 {
	var out []EntryV1
	for _, e := range t.Entries {
		if e.Output.ID == itemID {
			out = append(out, e)
		}
	}
	return out
}

// TableBuilder collects resolutions into a table. It is a service.Sink; the
// last resolution seen for a recipe wins.
type TableBuilder struct {
	mu   sync.Mutex
	byID map[string]EntryV1
}

func NewTableBuilder() *TableBuilder {
	return &TableBuilder{byID: map[string]EntryV1{}}
}

func (b *TableBuilder) RecordResolution(r service.Resolution) {
	if !r.Input.IsEmpty() {
		// Input-specific grids are not part of the catalog-wide table.
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID[r.RecipeID] = EntryFrom(r)
}

func (b *TableBuilder) Table(h Header) TableV1 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.byID))
	for id := range b.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	t := TableV1{Header: h, Entries: make([]EntryV1, 0, len(ids))}
	for _, id := range ids {
		t.Entries = append(t.Entries, b.byID[id])
	}
	t.Header.Version = TableVersion
	t.Header.Entries = len(t.Entries)
	return t
}

func WriteTable(path string, t TableV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(t.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&t); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadTable(path string) (TableV1, error) {
	var t TableV1
	br, closeFn, err := open(path)
	if err != nil {
		return t, err
	}
	defer closeFn()

	if _, err := br.ReadBytes('\n'); err != nil {
		return t, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&t); err != nil {
		return t, fmt.Errorf("gob decode: %w", err)
	}
	if t.Header.Version != TableVersion {
		return t, fmt.Errorf("unsupported table version %d", t.Header.Version)
	}
	return t, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	br, closeFn, err := open(path)
	if err != nil {
		return h, err
	}
	defer closeFn()

	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func open(path string) (*bufio.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return bufio.NewReaderSize(dec, 64*1024), func() {
		dec.Close()
		_ = f.Close()
	}, nil
}
