// Package config loads distribution configuration files.
//
// Files are YAML or CUE. Both are unified with the embedded #Distribution
// schema before decoding, so type, range and unknown-field errors carry a
// file position.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/seed"
)

//go:embed schema.cue
var schemaCUE string

// maxSeconds is the largest whole-second duration time.Duration can hold.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// Format is a configuration file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf picks the format from a file extension. JSON is read as YAML.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", fmt.Errorf("config: unsupported file extension %q", filepath.Ext(path))
}

// File is the on-disk shape of a distribution configuration.
type File struct {
	GuardianSeedHash       string `json:"guardian_seed_hash" yaml:"guardian_seed_hash"`
	GuardianWindowSeconds  int64  `json:"guardian_window_seconds" yaml:"guardian_window_seconds"`
	MaxDistributionSeconds int64  `json:"max_distribution_seconds" yaml:"max_distribution_seconds"`
	MaxSupply              uint64 `json:"max_supply" yaml:"max_supply"`
	StartPolicy            string `json:"start_policy" yaml:"start_policy"`
}

// Error is a configuration error with its source position, if known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Load reads and validates the configuration at path.
func Load(path string) (engine.Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return engine.Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, format, filepath.Base(path))
}

// Parse validates data against the schema and converts it to an
// engine.Config. filename is used in error positions.
func Parse(data []byte, format Format, filename string) (engine.Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).
		LookupPath(cue.ParsePath("#Distribution"))
	if err := schema.Err(); err != nil {
		return engine.Config{}, fmt.Errorf("config: compile schema: %w", err)
	}

	var v cue.Value
	switch format {
	case FormatYAML:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return engine.Config{}, &Error{Message: fmt.Sprintf("%s: %v", filename, err)}
		}
		if raw == nil {
			return engine.Config{}, &Error{Message: fmt.Sprintf("%s: empty configuration", filename)}
		}
		v = ctx.Encode(raw)
	case FormatCUE:
		v = ctx.CompileBytes(data, cue.Filename(filename))
	default:
		return engine.Config{}, fmt.Errorf("config: unknown format %q", format)
	}
	if err := v.Err(); err != nil {
		return engine.Config{}, formatCUEError(err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return engine.Config{}, formatCUEError(err)
	}

	var f File
	if err := unified.Decode(&f); err != nil {
		return engine.Config{}, formatCUEError(err)
	}
	return f.Config()
}

// Config converts f to an engine.Config and validates it.
func (f File) Config() (engine.Config, error) {
	hash, err := seed.ParseHash(f.GuardianSeedHash)
	if err != nil {
		return engine.Config{}, fmt.Errorf("config: guardian_seed_hash: %w", err)
	}
	for _, d := range []struct {
		name    string
		seconds int64
	}{
		{"guardian_window_seconds", f.GuardianWindowSeconds},
		{"max_distribution_seconds", f.MaxDistributionSeconds},
	} {
		if d.seconds > maxSeconds {
			return engine.Config{}, fmt.Errorf("config: %s: %d exceeds %d", d.name, d.seconds, maxSeconds)
		}
	}
	cfg := engine.Config{
		GuardianSeedHash:        hash,
		GuardianWindow:          time.Duration(f.GuardianWindowSeconds) * time.Second,
		MaxDistributionDuration: time.Duration(f.MaxDistributionSeconds) * time.Second,
		MaxSupply:               f.MaxSupply,
		StartPolicy:             engine.StartPolicy(f.StartPolicy),
	}
	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

// FromConfig builds the file form of cfg.
func FromConfig(cfg engine.Config) File {
	policy := cfg.StartPolicy
	if policy == "" {
		policy = engine.StartOnFirstMint
	}
	return File{
		GuardianSeedHash:       cfg.GuardianSeedHash.Hex(),
		GuardianWindowSeconds:  int64(cfg.GuardianWindow / time.Second),
		MaxDistributionSeconds: int64(cfg.MaxDistributionDuration / time.Second),
		MaxSupply:              cfg.MaxSupply,
		StartPolicy:            string(policy),
	}
}

// Marshal renders cfg as YAML that Parse accepts.
func Marshal(cfg engine.Config) ([]byte, error) {
	data, err := yaml.Marshal(FromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return data, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Message: first.Error(), Pos: positions[0]}
	}
	return &Error{Message: first.Error()}
}
