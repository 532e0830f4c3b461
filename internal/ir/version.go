package ir

// Version constants reported by the CLI and the reporting surface.
const (
	// ResultVersion is the version of the observation record layout.
	ResultVersion = "1"

	// EngineVersion is the sqlheur engine version.
	EngineVersion = "0.1.0"
)
