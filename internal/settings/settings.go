package settings

// ShellSettings stores shell-wide configuration read from config.toml.
type ShellSettings struct {
	Window   WindowSettings   `toml:"window" json:"window"`
	Update   UpdateSettings   `toml:"update" json:"update"`
	Log      LogSettings      `toml:"log" json:"log"`
	DeepLink DeepLinkSettings `toml:"deeplink" json:"deeplink"`
}

// WindowSettings controls the main window geometry.
type WindowSettings struct {
	Width     int `toml:"width" json:"width"`
	Height    int `toml:"height" json:"height"`
	MinWidth  int `toml:"min_width" json:"minWidth"`
	MinHeight int `toml:"min_height" json:"minHeight"`
}

// UpdateSettings controls the update checker.
type UpdateSettings struct {
	Disabled  bool   `toml:"disabled" json:"disabled"`
	FeedURL   string `toml:"feed_url" json:"feedUrl"` // {os} and {arch} are substituted.
	TimeoutMS int64  `toml:"timeout_ms" json:"timeoutMs"`
}

// LogSettings controls the slog handler.
type LogSettings struct {
	Level  string `toml:"level" json:"level"`   // debug, info, warn, error
	Format string `toml:"format" json:"format"` // text or json
}

// DeepLinkSettings controls the startup-race mitigation.
type DeepLinkSettings struct {
	RouteDelayMS int64 `toml:"route_delay_ms" json:"routeDelayMs"`
}

const (
	DefaultWidth        = 1400
	DefaultHeight       = 900
	DefaultMinWidth     = 800
	DefaultMinHeight    = 600
	DefaultFeedURL      = "https://ergosum.cc/desktop/releases/{os}-{arch}/latest.json"
	DefaultTimeoutMS    = int64(15000)
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultRouteDelayMS = int64(1000)
)

// Defaults returns ShellSettings with sensible defaults.
func Defaults() ShellSettings {
	return ShellSettings{
		Window: WindowSettings{
			Width:     DefaultWidth,
			Height:    DefaultHeight,
			MinWidth:  DefaultMinWidth,
			MinHeight: DefaultMinHeight,
		},
		Update: UpdateSettings{
			FeedURL:   DefaultFeedURL,
			TimeoutMS: DefaultTimeoutMS,
		},
		Log: LogSettings{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		DeepLink: DeepLinkSettings{
			RouteDelayMS: DefaultRouteDelayMS,
		},
	}
}

// WithDefaults fills zero-value fields with defaults.
func WithDefaults(s ShellSettings) ShellSettings {
	d := Defaults()
	if s.Window.Width <= 0 {
		s.Window.Width = d.Window.Width
	}
	if s.Window.Height <= 0 {
		s.Window.Height = d.Window.Height
	}
	if s.Window.MinWidth <= 0 {
		s.Window.MinWidth = d.Window.MinWidth
	}
	if s.Window.MinHeight <= 0 {
		s.Window.MinHeight = d.Window.MinHeight
	}
	if s.Update.FeedURL == "" {
		s.Update.FeedURL = d.Update.FeedURL
	}
	if s.Update.TimeoutMS <= 0 {
		s.Update.TimeoutMS = d.Update.TimeoutMS
	}
	if s.Log.Level == "" {
		s.Log.Level = d.Log.Level
	}
	if s.Log.Format == "" {
		s.Log.Format = d.Log.Format
	}
	if s.DeepLink.RouteDelayMS <= 0 {
		s.DeepLink.RouteDelayMS = d.DeepLink.RouteDelayMS
	}
	return s
}

// Validate checks settings constraints and clamps values.
func Validate(s ShellSettings) ShellSettings {
	if s.Window.MinWidth < 400 {
		s.Window.MinWidth = 400
	}
	if s.Window.MinHeight < 300 {
		s.Window.MinHeight = 300
	}
	if s.Window.Width < s.Window.MinWidth {
		s.Window.Width = s.Window.MinWidth
	}
	if s.Window.Height < s.Window.MinHeight {
		s.Window.Height = s.Window.MinHeight
	}
	if s.Update.TimeoutMS < 1000 {
		s.Update.TimeoutMS = 1000
	}
	if s.Update.TimeoutMS > 120000 {
		s.Update.TimeoutMS = 120000
	}
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		s.Log.Level = DefaultLogLevel
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		s.Log.Format = DefaultLogFormat
	}
	// The delay only papers over window creation; keep it short.
	if s.DeepLink.RouteDelayMS < 250 {
		s.DeepLink.RouteDelayMS = 250
	}
	if s.DeepLink.RouteDelayMS > 5000 {
		s.DeepLink.RouteDelayMS = 5000
	}
	return s
}
