package ir

// Version constants for the journal schema and engine.
const (
	// IRVersion is the event payload schema version.
	IRVersion = "1"

	// EngineVersion is the fairseed engine version.
	EngineVersion = "0.1.0"
)
