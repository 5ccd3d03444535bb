package blog

import "github.com/goliatone/go-blog/internal/runtimeconfig"

var (
	ErrSourceRequired         = runtimeconfig.ErrSourceRequired
	ErrDestinationRequired    = runtimeconfig.ErrDestinationRequired
	ErrPermalinkInvalid       = runtimeconfig.ErrPermalinkInvalid
	ErrPaginateInvalid        = runtimeconfig.ErrPaginateInvalid
	ErrSiteURLInvalid         = runtimeconfig.ErrSiteURLInvalid
	ErrBaseURLInvalid         = runtimeconfig.ErrBaseURLInvalid
	ErrTimezoneInvalid        = runtimeconfig.ErrTimezoneInvalid
	ErrWorkersInvalid         = runtimeconfig.ErrWorkersInvalid
	ErrLoggingProviderUnknown = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid    = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid   = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config          = runtimeconfig.Config
	SiteConfig      = runtimeconfig.SiteConfig
	BuildConfig     = runtimeconfig.BuildConfig
	ContentConfig   = runtimeconfig.ContentConfig
	MarkdownConfig  = runtimeconfig.MarkdownConfig
	LinkCheckConfig = runtimeconfig.LinkCheckConfig
	ServerConfig    = runtimeconfig.ServerConfig
	WatchConfig     = runtimeconfig.WatchConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
	LoadOptions     = runtimeconfig.LoadOptions
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads _config.yml and BLOG_* overrides on top of DefaultConfig.
func LoadConfig(opts LoadOptions) (Config, error) {
	return runtimeconfig.Load(opts)
}
