package settings

import "testing"

func TestDefaults(t *testing.T) {
	t.Parallel()
	d := Defaults()
	if d.Window.Width != DefaultWidth || d.Window.Height != DefaultHeight {
		t.Fatalf("window = %dx%d, want %dx%d", d.Window.Width, d.Window.Height, DefaultWidth, DefaultHeight)
	}
	if d.Window.MinWidth != 800 || d.Window.MinHeight != 600 {
		t.Fatalf("min window = %dx%d, want 800x600", d.Window.MinWidth, d.Window.MinHeight)
	}
	if d.Update.Disabled {
		t.Fatal("update disabled = true, want false")
	}
	if d.Update.FeedURL != DefaultFeedURL {
		t.Fatalf("feed = %q, want %q", d.Update.FeedURL, DefaultFeedURL)
	}
	if d.Log.Level != "info" {
		t.Fatalf("log level = %q, want info", d.Log.Level)
	}
	if d.DeepLink.RouteDelayMS != 1000 {
		t.Fatalf("route delay = %d, want 1000", d.DeepLink.RouteDelayMS)
	}
}

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	t.Parallel()
	s := WithDefaults(ShellSettings{})
	if s.Window.Width != DefaultWidth {
		t.Fatalf("width = %d, want %d", s.Window.Width, DefaultWidth)
	}
	if s.Update.TimeoutMS != DefaultTimeoutMS {
		t.Fatalf("timeout = %d, want %d", s.Update.TimeoutMS, DefaultTimeoutMS)
	}
	if s.Log.Format != DefaultLogFormat {
		t.Fatalf("format = %q, want %q", s.Log.Format, DefaultLogFormat)
	}
	if s.DeepLink.RouteDelayMS != DefaultRouteDelayMS {
		t.Fatalf("route delay = %d, want %d", s.DeepLink.RouteDelayMS, DefaultRouteDelayMS)
	}
}

func TestWithDefaultsPreservesUserValues(t *testing.T) {
	t.Parallel()
	s := WithDefaults(ShellSettings{
		Window:   WindowSettings{Width: 1600, Height: 1000},
		Update:   UpdateSettings{Disabled: true, FeedURL: "https://example.com/feed.json"},
		Log:      LogSettings{Level: "debug", Format: "json"},
		DeepLink: DeepLinkSettings{RouteDelayMS: 1500},
	})
	if s.Window.Width != 1600 || s.Window.Height != 1000 {
		t.Fatalf("window = %dx%d, want 1600x1000", s.Window.Width, s.Window.Height)
	}
	if !s.Update.Disabled {
		t.Fatal("update disabled = false, want true")
	}
	if s.Update.FeedURL != "https://example.com/feed.json" {
		t.Fatalf("feed = %q", s.Update.FeedURL)
	}
	if s.Log.Level != "debug" || s.Log.Format != "json" {
		t.Fatalf("log = %+v", s.Log)
	}
	if s.DeepLink.RouteDelayMS != 1500 {
		t.Fatalf("route delay = %d, want 1500", s.DeepLink.RouteDelayMS)
	}
}

func TestValidateClampsValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input ShellSettings
		check func(t *testing.T, s ShellSettings)
	}{
		{
			name:  "route delay too low",
			input: WithDefaults(ShellSettings{DeepLink: DeepLinkSettings{RouteDelayMS: 10}}),
			check: func(t *testing.T, s ShellSettings) {
				if s.DeepLink.RouteDelayMS != 250 {
					t.Fatalf("route delay = %d, want 250", s.DeepLink.RouteDelayMS)
				}
			},
		},
		{
			name:  "route delay too high",
			input: WithDefaults(ShellSettings{DeepLink: DeepLinkSettings{RouteDelayMS: 60000}}),
			check: func(t *testing.T, s ShellSettings) {
				if s.DeepLink.RouteDelayMS != 5000 {
					t.Fatalf("route delay = %d, want 5000", s.DeepLink.RouteDelayMS)
				}
			},
		},
		{
			name:  "window smaller than minimum",
			input: WithDefaults(ShellSettings{Window: WindowSettings{Width: 200, Height: 100}}),
			check: func(t *testing.T, s ShellSettings) {
				if s.Window.Width != 800 || s.Window.Height != 600 {
					t.Fatalf("window = %dx%d, want 800x600", s.Window.Width, s.Window.Height)
				}
			},
		},
		{
			name:  "timeout too high",
			input: WithDefaults(ShellSettings{Update: UpdateSettings{TimeoutMS: 999999}}),
			check: func(t *testing.T, s ShellSettings) {
				if s.Update.TimeoutMS != 120000 {
					t.Fatalf("timeout = %d, want 120000", s.Update.TimeoutMS)
				}
			},
		},
		{
			name:  "unknown log level and format",
			input: WithDefaults(ShellSettings{Log: LogSettings{Level: "verbose", Format: "xml"}}),
			check: func(t *testing.T, s ShellSettings) {
				if s.Log.Level != "info" || s.Log.Format != "text" {
					t.Fatalf("log = %+v, want info/text", s.Log)
				}
			},
		},
		{
			name:  "valid values unchanged",
			input: Defaults(),
			check: func(t *testing.T, s ShellSettings) {
				if s != Defaults() {
					t.Fatalf("settings = %+v, want defaults", s)
				}
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := Validate(tt.input)
			tt.check(t, result)
		})
	}
}
