package config

import "time"

// Default values applied before validation.
const (
	DefaultEndpoint    = "https://happo.io"
	DefaultQuietWindow = Duration(200 * time.Millisecond)
	DefaultMaxDelay    = Duration(2 * time.Second)
	DefaultUploadKind  = "local"
	DefaultUploadDir   = ".happo/uploads"
	DefaultEventsSubj  = "happo.builds"
	DefaultExamplesDir = "examples"
)

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Upload.Kind == "" {
		c.Upload.Kind = DefaultUploadKind
	}
	if c.Upload.Kind == "local" && c.Upload.Dir == "" {
		c.Upload.Dir = DefaultUploadDir
	}
	if c.ExamplesDir == "" {
		c.ExamplesDir = DefaultExamplesDir
	}
	if c.Watch.Entry == "" {
		c.Watch.Entry = "."
	}
	if c.Watch.QuietWindow <= 0 {
		c.Watch.QuietWindow = DefaultQuietWindow
	}
	if c.Watch.MaxDelay <= 0 {
		c.Watch.MaxDelay = DefaultMaxDelay
	}
	if c.Events.NATSURL != "" && c.Events.Subject == "" {
		c.Events.Subject = DefaultEventsSubj
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}
