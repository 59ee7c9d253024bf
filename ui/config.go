package ui

// Config contains TUI-specific configuration.
type Config struct {
	Prompt string

	// Rule table reloaded when it changes on disk, if Watch is set
	RulesPath string
	Watch     bool

	// Rebuilds the resolver after the rule table changed
	Reload func() error

	// Number of turns kept on screen
	History int `env:"DURGESH_HISTORY" envDefault:"100"`

	// For debugging the UI
	ShowTimings bool `env:"DURGESH_SHOW_TIMINGS"`
}
