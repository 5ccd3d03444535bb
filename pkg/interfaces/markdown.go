package interfaces

// MarkdownParser converts Markdown source into HTML.
type MarkdownParser interface {
	// Parse renders with the parser defaults.
	Parse(markdown []byte) ([]byte, error)
	// ParseWithOptions renders with per-call overrides.
	ParseWithOptions(markdown []byte, opts ParseOptions) ([]byte, error)
}

// ParseOptions toggles Markdown rendering behaviour. Field names double as
// configuration keys so they can be loaded from the site config.
type ParseOptions struct {
	Extensions []string `mapstructure:"extensions"`
	HardWraps  bool     `mapstructure:"hard_wraps"`
	SafeMode   bool     `mapstructure:"safe_mode"`
}
