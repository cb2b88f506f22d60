// Package harness runs distribution scenarios against the real engine.
//
// A scenario drives one distribution through a list of steps on a fake
// clock and an in-memory chain, checks each step's outcome, evaluates
// assertions over the final state and journal, and finally restores the
// distribution from its journal to check that replay reproduces the live
// state exactly.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:
//	  guardian_window_seconds: 600
//	  max_distribution_seconds: 60
//	  max_supply: 10
//	steps:
//	  - op: mint
//	    count: 3
//	  - op: advance
//	    seconds: 61
//	  - op: close
//	    expect: { closed: true, phase: distribution_ended }
//	  - op: submit_seed
//	    password: wrong
//	    expect: { error: COMMITMENT_MISMATCH }
//	assertions:
//	  - type: final_phase
//	    phase: distribution_ended
//	  - type: event_order
//	    events: [distribution_opened, mint_recorded, distribution_ended]
//
// Step ops: mint, advance, close, fix_block, mine, reveal, submit_seed,
// fallback, final_seed. A step without expect must succeed.
//
// # Golden Files
//
// RunWithGolden compares the step trace against testdata/golden/<name>.golden.
// Traces hold phases, event types and elapsed seconds but no hashes, so they
// are stable across guardian passwords. Regenerate with:
//
//	go test ./internal/harness -update
package harness
