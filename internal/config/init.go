package config

import (
	"fmt"
	"os"
)

const initTemplate = `# happo configuration
project: my-project

targets:
  - name: chrome-large
    browser: chrome
    viewport_width: 1024
    viewport_height: 768
  - name: chrome-small
    browser: chrome
    viewport_width: 320
    viewport_height: 640

examples_dir: examples

stylesheets:
  - styles/main.css

upload:
  kind: local
  dir: .happo/uploads

# api_key and api_secret are read from HAPPO_API_KEY / HAPPO_API_SECRET
`

// Init writes a starter configuration file.
func Init(configPath string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
		}
	}
	return os.WriteFile(configPath, []byte(initTemplate), 0o644)
}
