package config

// Source indicates where a configuration layer came from.
type Source string

// Configuration source constants.
const (
	// SourceDefault indicates built-in defaults.
	SourceDefault Source = "default"

	// SourceGlobal indicates the user's global config file.
	SourceGlobal Source = "global"

	// SourceLocal indicates .spork.yaml in the repository root.
	SourceLocal Source = "local"

	// SourceEnv indicates SPORK_* environment variables.
	SourceEnv Source = "env"
)

// Layer records a configuration layer that contributed values.
type Layer struct {
	Source Source
	Path   string // file path, or the variable names for SourceEnv
}
