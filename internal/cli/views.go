package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/fairseed/internal/engine"
	"github.com/roach88/fairseed/internal/seed"
)

// StatusView is the rendered state of one distribution.
type StatusView struct {
	DistributionID   string `json:"distribution_id"`
	Phase            string `json:"phase"`
	MintedCount      uint64 `json:"minted_count"`
	MaxSupply        uint64 `json:"max_supply"`
	StartPolicy      string `json:"start_policy"`
	StartTime        string `json:"start_time,omitempty"`
	DistributionEnd  string `json:"distribution_end,omitempty"`
	EndReason        string `json:"end_reason,omitempty"`
	SeedBlockNumber  uint64 `json:"seed_block_number,omitempty"`
	BlockHash        string `json:"block_hash,omitempty"`
	AutomaticSeed    string `json:"automatic_seed,omitempty"`
	GuardianDeadline string `json:"guardian_deadline,omitempty"`
	GuardianSeed     string `json:"guardian_seed,omitempty"`
	FinalSeed        string `json:"final_seed,omitempty"`
	Seq              int64  `json:"seq"`
}

func newStatusView(id string, cfg engine.Config, st engine.State) StatusView {
	v := StatusView{
		DistributionID: id,
		Phase:          st.Phase.String(),
		MintedCount:    st.MintedCount,
		MaxSupply:      cfg.MaxSupply,
		StartPolicy:    string(cfg.StartPolicy),
		EndReason:      string(st.EndReason),
		AutomaticSeed:  hashString(st.AutomaticSeed),
		BlockHash:      hashString(st.BlockHash),
		GuardianSeed:   hashString(st.GuardianSeed),
		FinalSeed:      hashString(st.FinalSeed),
		Seq:            st.Seq,
	}
	if v.StartPolicy == "" {
		v.StartPolicy = string(engine.StartOnFirstMint)
	}
	if !st.StartTime.IsZero() {
		v.StartTime = timeString(st.StartTime)
	}
	if !st.EndTime.IsZero() {
		v.DistributionEnd = timeString(st.EndTime)
	} else if end, ok := st.DistributionEnd(cfg); ok {
		v.DistributionEnd = timeString(end)
	}
	if st.SeedBlockFixed {
		v.SeedBlockNumber = st.SeedBlockNumber
	}
	if !st.GuardianDeadline.IsZero() {
		v.GuardianDeadline = timeString(st.GuardianDeadline)
	}
	return v
}

// String renders the view as aligned key/value lines, skipping empty fields.
func (v StatusView) String() string {
	var b strings.Builder
	line := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-18s %s\n", key+":", value)
		}
	}
	line("Distribution", v.DistributionID)
	line("Phase", v.Phase)
	line("Minted", fmt.Sprintf("%d / %d", v.MintedCount, v.MaxSupply))
	line("Start policy", v.StartPolicy)
	line("Started", v.StartTime)
	line("Minting ends", v.DistributionEnd)
	line("End reason", v.EndReason)
	if v.SeedBlockNumber != 0 {
		line("Seed block", fmt.Sprint(v.SeedBlockNumber))
	}
	line("Block hash", v.BlockHash)
	line("Automatic seed", v.AutomaticSeed)
	line("Guardian deadline", v.GuardianDeadline)
	line("Guardian seed", v.GuardianSeed)
	line("Final seed", v.FinalSeed)
	return strings.TrimSuffix(b.String(), "\n")
}

// SeedView reports a single seed produced by an operation.
type SeedView struct {
	Phase string `json:"phase"`
	Seed  string `json:"seed"`
	Label string `json:"-"`
}

func (v SeedView) String() string {
	return fmt.Sprintf("%s: %s (phase=%s)", v.Label, v.Seed, v.Phase)
}

func hashString(h *seed.Hash) string {
	if h == nil {
		return ""
	}
	return h.Hex()
}

func timeString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
