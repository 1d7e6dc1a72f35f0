// Package params loads the versioned model-parameter bundle produced by
// the offline tuning pipeline. Loading is strict: a malformed or missing
// bundle is fatal at startup, never silently defaulted.
package params

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"cost_engine/internal/fees"
	"cost_engine/internal/impact"
	"cost_engine/internal/makertaker"
	"cost_engine/internal/slippage"
)

// Entry is the raw per-symbol parameter block as it appears in YAML.
type Entry struct {
	Slippage   slippage.Params   `yaml:"slippage"`
	Impact     impact.Params     `yaml:"impact"`
	MakerTaker makertaker.Params `yaml:"maker_taker"`
	// Fees is optional; absent means the exchange default schedule.
	Fees *fees.Schedule `yaml:"fees"`
}

type file struct {
	Version  int               `yaml:"version"`
	Defaults *Entry            `yaml:"defaults"`
	Symbols  map[string]*Entry `yaml:"symbols"`
}

// Set is a resolved, ready-to-query model collection for one symbol.
// All fields are immutable after Load.
type Set struct {
	Slippage   *slippage.Estimator
	Impact     impact.Params
	MakerTaker makertaker.Model
	Fees       fees.Schedule
}

// Bundle holds the resolved sets for every configured symbol plus the
// defaults used for symbols without an override.
type Bundle struct {
	Version  int
	defaults *Set
	symbols  map[string]*Set
}

// For returns the model set for a symbol, falling back to defaults.
func (b *Bundle) For(symbol string) *Set {
	if s, ok := b.symbols[symbol]; ok {
		return s
	}
	return b.defaults
}

// Load reads and validates a bundle file.
func Load(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameter bundle: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse parameter bundle %s: %w", path, err)
	}
	if f.Version <= 0 {
		return nil, fmt.Errorf("parameter bundle %s: version is required", path)
	}
	if f.Defaults == nil {
		return nil, fmt.Errorf("parameter bundle %s: defaults block is required", path)
	}

	defaults, err := resolve(f.Defaults)
	if err != nil {
		return nil, fmt.Errorf("parameter bundle %s: defaults: %w", path, err)
	}
	b := &Bundle{Version: f.Version, defaults: defaults, symbols: make(map[string]*Set, len(f.Symbols))}
	for sym, e := range f.Symbols {
		if e == nil {
			return nil, fmt.Errorf("parameter bundle %s: symbol %s: empty block", path, sym)
		}
		set, err := resolve(e)
		if err != nil {
			return nil, fmt.Errorf("parameter bundle %s: symbol %s: %w", path, sym, err)
		}
		b.symbols[sym] = set
	}
	return b, nil
}

func resolve(e *Entry) (*Set, error) {
	slip, err := slippage.New(e.Slippage)
	if err != nil {
		return nil, err
	}
	if err := e.Impact.Validate(); err != nil {
		return nil, err
	}
	mt, err := makertaker.New(e.MakerTaker)
	if err != nil {
		return nil, err
	}
	schedule := fees.DefaultSchedule()
	if e.Fees != nil {
		schedule = *e.Fees
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return &Set{
		Slippage:   slip,
		Impact:     e.Impact,
		MakerTaker: mt,
		Fees:       schedule,
	}, nil
}

// Store publishes the active bundle behind an atomic pointer. Reload swaps
// the whole bundle or leaves the old one in place on error; readers never
// see a partially updated parameter set.
type Store struct {
	path string
	p    atomic.Pointer[Bundle]
}

func NewStore(path string) (*Store, error) {
	b, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.p.Store(b)
	return s, nil
}

func (s *Store) Get() *Bundle { return s.p.Load() }

func (s *Store) Reload() error {
	b, err := Load(s.path)
	if err != nil {
		return err
	}
	s.p.Store(b)
	return nil
}
