package config

import (
	"fmt"

	"github.com/lowsky/happo.io/internal/errors"
)

// Validate checks the configuration for problems that would make a run
// impossible. It runs after defaults and env overrides have been applied.
func (c *Config) Validate() error {
	if c.Project == "" {
		return errors.ConfigError("project is required")
	}
	if len(c.Targets) == 0 {
		return errors.ConfigError("at least one target is required")
	}

	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.Name == "" {
			return errors.ValidationError(fmt.Sprintf("target %d: name is required", i))
		}
		if seen[t.Name] {
			return errors.ValidationError(fmt.Sprintf("duplicate target name %q", t.Name))
		}
		seen[t.Name] = true
		if t.ViewportWidth <= 0 || t.ViewportHeight <= 0 {
			return errors.ValidationError(fmt.Sprintf("target %q: viewport dimensions must be positive", t.Name))
		}
	}

	for i, s := range c.Stylesheets {
		if s.Source == "" {
			return errors.ValidationError(fmt.Sprintf("stylesheet %d: source is required", i))
		}
	}

	switch c.Upload.Kind {
	case "local":
		if c.Upload.Dir == "" {
			return errors.ValidationError("upload.dir is required for the local uploader")
		}
	case "s3":
		if c.Upload.Bucket == "" {
			return errors.ValidationError("upload.bucket is required for the s3 uploader")
		}
	default:
		return errors.ValidationError(fmt.Sprintf("unknown upload.kind %q (expected s3 or local)", c.Upload.Kind))
	}

	if !c.IsPrerender() && c.StaticDir == "" {
		return errors.ValidationError("static_dir is required when prerender is disabled")
	}

	return nil
}
