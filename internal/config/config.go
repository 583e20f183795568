// Package config loads table configuration from an HCL file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/payout"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the complete table configuration.
type Config struct {
	Engine             *EngineSettings          `hcl:"engine,block"`
	Rules              *RuleSettings            `hcl:"rules,block"`
	PerfectPair        *PerfectPairTable        `hcl:"perfect_pair,block"`
	TwentyOnePlusThree *TwentyOnePlusThreeTable `hcl:"twenty_one_plus_three,block"`
	Storage            *StorageSettings         `hcl:"storage,block"`
	Log                *LogSettings             `hcl:"log,block"`
}

// EngineSettings configures locking and table size.
type EngineSettings struct {
	LockTTL   string `hcl:"lock_ttl,optional"`
	LockScope string `hcl:"lock_scope,optional"`
	Decks     int    `hcl:"decks,optional"`
	MaxSeats  int    `hcl:"max_seats,optional"`
}

// RuleSettings holds payout rates as decimal strings.
type RuleSettings struct {
	BlackjackRate string `hcl:"blackjack_rate,optional"`
	StandardRate  string `hcl:"standard_rate,optional"`
	InsuranceRate string `hcl:"insurance_rate,optional"`
}

// PerfectPairTable holds Perfect Pair multipliers.
type PerfectPairTable struct {
	Perfect int `hcl:"perfect,optional"`
	Colored int `hcl:"colored,optional"`
	Mixed   int `hcl:"mixed,optional"`
}

// TwentyOnePlusThreeTable holds 21+3 multipliers.
type TwentyOnePlusThreeTable struct {
	SuitedTriple  int `hcl:"suited_triple,optional"`
	StraightFlush int `hcl:"straight_flush,optional"`
	ThreeOfAKind  int `hcl:"three_of_a_kind,optional"`
	Straight      int `hcl:"straight,optional"`
	Flush         int `hcl:"flush,optional"`
}

// StorageSettings selects the game store.
type StorageSettings struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level string `hcl:"level,optional"`
	JSON  bool   `hcl:"json,optional"`
}

// EnvOverrides are read from BLACKJACK_* variables and win over the file.
type EnvOverrides struct {
	StorageDriver string        `env:"STORAGE_DRIVER"`
	StoragePath   string        `env:"STORAGE_PATH"`
	LogLevel      string        `env:"LOG_LEVEL"`
	LogFormat     string        `env:"LOG_FORMAT"`
	LockTTL       time.Duration `env:"LOCK_TTL"`
	MaxSeats      int           `env:"MAX_SEATS"`
}

// Default returns the default configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path, falling back to defaults when the file does not exist,
// then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

func load(path string, environ map[string]string) (*Config, error) {
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(environ); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads an HCL configuration file and fills in defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var c Config
	diags = gohcl.DecodeBody(file.Body, nil, &c)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	c.applyDefaults()
	return &c, nil
}

// ApplyEnv overlays BLACKJACK_* variables. A nil environ reads the process
// environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	var o EnvOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: "BLACKJACK_", Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.StorageDriver != "" {
		c.Storage.Driver = o.StorageDriver
	}
	if o.StoragePath != "" {
		c.Storage.Path = o.StoragePath
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	switch o.LogFormat {
	case "json":
		c.Log.JSON = true
	case "console":
		c.Log.JSON = false
	}
	if o.LockTTL > 0 {
		c.Engine.LockTTL = o.LockTTL.String()
	}
	if o.MaxSeats > 0 {
		c.Engine.MaxSeats = o.MaxSeats
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Engine == nil {
		c.Engine = &EngineSettings{}
	}
	if c.Engine.LockTTL == "" {
		c.Engine.LockTTL = engine.DefaultLockTTL.String()
	}
	if c.Engine.LockScope == "" {
		c.Engine.LockScope = engine.DefaultLockScope
	}
	if c.Engine.Decks == 0 {
		c.Engine.Decks = deck.DefaultDecks
	}
	if c.Engine.MaxSeats == 0 {
		c.Engine.MaxSeats = engine.DefaultMaxSeats
	}

	if c.Rules == nil {
		c.Rules = &RuleSettings{}
	}
	if c.Rules.BlackjackRate == "" {
		c.Rules.BlackjackRate = "1.5"
	}
	if c.Rules.StandardRate == "" {
		c.Rules.StandardRate = "1"
	}
	if c.Rules.InsuranceRate == "" {
		c.Rules.InsuranceRate = "0.5"
	}

	if c.PerfectPair == nil {
		c.PerfectPair = &PerfectPairTable{}
	}
	pp := c.PerfectPair
	pp.Perfect = orDefault(pp.Perfect, 25)
	pp.Colored = orDefault(pp.Colored, 12)
	pp.Mixed = orDefault(pp.Mixed, 6)

	if c.TwentyOnePlusThree == nil {
		c.TwentyOnePlusThree = &TwentyOnePlusThreeTable{}
	}
	t := c.TwentyOnePlusThree
	t.SuitedTriple = orDefault(t.SuitedTriple, 100)
	t.StraightFlush = orDefault(t.StraightFlush, 40)
	t.ThreeOfAKind = orDefault(t.ThreeOfAKind, 30)
	t.Straight = orDefault(t.Straight, 10)
	t.Flush = orDefault(t.Flush, 5)

	if c.Storage == nil {
		c.Storage = &StorageSettings{}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "blackjack.db"
	}

	if c.Log == nil {
		c.Log = &LogSettings{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Validate checks the configuration for values the engine cannot use.
func (c *Config) Validate() error {
	if _, err := c.LockTTL(); err != nil {
		return err
	}
	if c.Engine.Decks < 1 || c.Engine.Decks > 8 {
		return fmt.Errorf("invalid decks: %d (must be 1-8)", c.Engine.Decks)
	}
	if c.Engine.MaxSeats < 1 {
		return fmt.Errorf("invalid max_seats: %d", c.Engine.MaxSeats)
	}
	if _, err := c.PayoutRules(); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	default:
		return fmt.Errorf("invalid storage driver: %q", c.Storage.Driver)
	}
	return nil
}

// LockTTL parses the configured lock time-to-live.
func (c *Config) LockTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Engine.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid lock_ttl %q: %w", c.Engine.LockTTL, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid lock_ttl %q: must be positive", c.Engine.LockTTL)
	}
	return d, nil
}

// PayoutRules builds settlement rules from the rates and pay tables.
func (c *Config) PayoutRules() (payout.Rules, error) {
	rate := func(name, v string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		if !d.IsPositive() {
			return decimal.Zero, fmt.Errorf("invalid %s %q: must be positive", name, v)
		}
		return d, nil
	}

	r := payout.DefaultRules()
	var err error
	if r.BlackjackRate, err = rate("blackjack_rate", c.Rules.BlackjackRate); err != nil {
		return payout.Rules{}, err
	}
	if r.StandardRate, err = rate("standard_rate", c.Rules.StandardRate); err != nil {
		return payout.Rules{}, err
	}
	if r.InsuranceRate, err = rate("insurance_rate", c.Rules.InsuranceRate); err != nil {
		return payout.Rules{}, err
	}

	pp := c.PerfectPair
	t := c.TwentyOnePlusThree
	for name, v := range map[string]int{
		"perfect_pair.perfect": pp.Perfect, "perfect_pair.colored": pp.Colored, "perfect_pair.mixed": pp.Mixed,
		"twenty_one_plus_three.suited_triple": t.SuitedTriple, "twenty_one_plus_three.straight_flush": t.StraightFlush,
		"twenty_one_plus_three.three_of_a_kind": t.ThreeOfAKind, "twenty_one_plus_three.straight": t.Straight,
		"twenty_one_plus_three.flush": t.Flush,
	} {
		if v < 0 {
			return payout.Rules{}, fmt.Errorf("invalid %s: %d", name, v)
		}
	}

	r.PerfectPair = map[game.PerfectPairTier]decimal.Decimal{
		game.PairPerfect: decimal.NewFromInt(int64(pp.Perfect)),
		game.PairColored: decimal.NewFromInt(int64(pp.Colored)),
		game.PairMixed:   decimal.NewFromInt(int64(pp.Mixed)),
	}
	r.TwentyOnePlusThree = map[game.ThreeCardTier]decimal.Decimal{
		game.ThreeCardSuitedTriple:  decimal.NewFromInt(int64(t.SuitedTriple)),
		game.ThreeCardStraightFlush: decimal.NewFromInt(int64(t.StraightFlush)),
		game.ThreeCardThreeOfAKind:  decimal.NewFromInt(int64(t.ThreeOfAKind)),
		game.ThreeCardStraight:      decimal.NewFromInt(int64(t.Straight)),
		game.ThreeCardFlush:         decimal.NewFromInt(int64(t.Flush)),
	}
	return r, nil
}

// EngineOptions translates the configuration into engine options.
func (c *Config) EngineOptions() ([]engine.Option, error) {
	ttl, err := c.LockTTL()
	if err != nil {
		return nil, err
	}
	rules, err := c.PayoutRules()
	if err != nil {
		return nil, err
	}
	return []engine.Option{
		engine.WithLockTTL(ttl),
		engine.WithLockScope(c.Engine.LockScope),
		engine.WithMaxSeats(c.Engine.MaxSeats),
		engine.WithRules(rules),
		engine.WithShoeSource(deck.NewProvableShoe(c.Engine.Decks)),
	}, nil
}
