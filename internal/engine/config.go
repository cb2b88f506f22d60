package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/fairseed/internal/ir"
	"github.com/roach88/fairseed/internal/seed"
)

// maxSeconds is the largest whole-second duration time.Duration can hold.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// Config is the immutable configuration of one distribution. It is fixed at
// construction and cannot be changed afterwards.
type Config struct {
	// GuardianSeedHash is the guardian's commitment, keccak256(seed).
	// It must be fresh for every distribution: reusing it links distributions
	// and lets anyone who saw an earlier reveal predict this one.
	GuardianSeedHash seed.Hash

	// GuardianWindow is how long the guardian has to reveal once the
	// automatic seed is known. Too long and tokens wait for metadata; too short
	// and an honest guardian may miss it.
	GuardianWindow time.Duration

	// MaxDistributionDuration bounds how long minting stays open.
	MaxDistributionDuration time.Duration

	// MaxSupply bounds the total number of mintable units.
	MaxSupply uint64

	// StartPolicy decides when MaxDistributionDuration starts counting.
	// Empty means StartOnFirstMint.
	StartPolicy StartPolicy
}

// Validate checks construction parameters. Any failure is INVALID_CONFIG.
func (c Config) Validate() error {
	switch {
	case c.GuardianSeedHash == (seed.Hash{}):
		return newError(ErrInvalidConfig, PhaseUnknown, "guardian seed hash is required")
	case c.MaxSupply == 0:
		return newError(ErrInvalidConfig, PhaseUnknown, "max supply must be positive")
	case c.MaxSupply > math.MaxInt64:
		return newError(ErrInvalidConfig, PhaseUnknown, "max supply %d exceeds %d", c.MaxSupply, int64(math.MaxInt64))
	}
	if err := validateSeconds("guardian window", c.GuardianWindow); err != nil {
		return err
	}
	if err := validateSeconds("max distribution duration", c.MaxDistributionDuration); err != nil {
		return err
	}
	if c.StartPolicy != "" && !c.StartPolicy.Valid() {
		return newError(ErrInvalidConfig, PhaseUnknown, "unknown start policy %q", c.StartPolicy)
	}
	return nil
}

func validateSeconds(name string, d time.Duration) error {
	if d <= 0 {
		return newError(ErrInvalidConfig, PhaseUnknown, "%s must be positive", name)
	}
	if d%time.Second != 0 {
		return newError(ErrInvalidConfig, PhaseUnknown, "%s must be a whole number of seconds, got %s", name, d)
	}
	return nil
}

// withDefaults fills optional fields.
func (c Config) withDefaults() Config {
	if c.StartPolicy == "" {
		c.StartPolicy = StartOnFirstMint
	}
	return c
}

// ToIR encodes the configuration for the journal.
func (c Config) ToIR() ir.IRObject {
	c = c.withDefaults()
	return ir.IRObject{
		"guardian_seed_hash":       ir.IRString(c.GuardianSeedHash.Hex()),
		"guardian_window_seconds":  ir.IRInt(int64(c.GuardianWindow / time.Second)),
		"max_distribution_seconds": ir.IRInt(int64(c.MaxDistributionDuration / time.Second)),
		"max_supply":               ir.IRInt(int64(c.MaxSupply)),
		"start_policy":             ir.IRString(string(c.StartPolicy)),
	}
}

// ConfigFromIR decodes a configuration written by ToIR and validates it.
func ConfigFromIR(obj ir.IRObject) (Config, error) {
	hashHex, ok := obj.String("guardian_seed_hash")
	if !ok {
		return Config{}, newError(ErrInvalidConfig, PhaseUnknown, "guardian_seed_hash missing")
	}
	hash, err := seed.ParseHash(hashHex)
	if err != nil {
		return Config{}, &Error{Code: ErrCodeInvalidConfig, Message: "guardian_seed_hash", Err: err}
	}

	ints := make(map[string]int64, 3)
	for _, key := range []string{"guardian_window_seconds", "max_distribution_seconds", "max_supply"} {
		v, ok := obj.Int(key)
		if !ok {
			return Config{}, newError(ErrInvalidConfig, PhaseUnknown, "%s missing", key)
		}
		if v <= 0 {
			return Config{}, newError(ErrInvalidConfig, PhaseUnknown, "%s must be positive", key)
		}
		if key != "max_supply" && v > maxSeconds {
			return Config{}, newError(ErrInvalidConfig, PhaseUnknown, "%s exceeds %d", key, int64(maxSeconds))
		}
		ints[key] = v
	}
	policy, _ := obj.String("start_policy")

	cfg := Config{
		GuardianSeedHash:        hash,
		GuardianWindow:          time.Duration(ints["guardian_window_seconds"]) * time.Second,
		MaxDistributionDuration: time.Duration(ints["max_distribution_seconds"]) * time.Second,
		MaxSupply:               uint64(ints["max_supply"]),
		StartPolicy:             StartPolicy(policy),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

// Fingerprint returns the content hash of the configuration.
func (c Config) Fingerprint() (string, error) {
	return ir.ConfigHash(c.ToIR())
}

// Record builds the journal registration for a distribution with this configuration.
func (c Config) Record(id string, createdAt time.Time) (ir.DistributionRecord, error) {
	hash, err := c.Fingerprint()
	if err != nil {
		return ir.DistributionRecord{}, fmt.Errorf("config record: %w", err)
	}
	return ir.DistributionRecord{
		ID:         id,
		Config:     c.ToIR(),
		ConfigHash: hash,
		CreatedAt:  createdAt.Unix(),
	}, nil
}
