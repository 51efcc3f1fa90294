// Package css resolves declared stylesheet sources and plugin-provided
// inline CSS into the ordered list of blocks a target pass packages.
package css

// Block is one resolved unit of CSS. Order across a slice of blocks is
// significant: later blocks may override earlier rules, so it must be
// preserved across all targets.
type Block struct {
	// Source is the declared origin path for file-based blocks.
	Source string `json:"source,omitempty"`

	// ID identifies the block in the packaged bundle. Defaults to Source
	// for file-based blocks.
	ID string `json:"id,omitempty"`

	// Conditional is an optional media-style condition the remote side
	// applies when injecting the block.
	Conditional string `json:"conditional,omitempty"`

	// CSS is the block content.
	CSS string `json:"css"`
}

// PluginCSS is an inline CSS string contributed by a plugin at registration
// time. Plugin blocks are appended after all declared stylesheets.
type PluginCSS struct {
	Plugin string
	CSS    string
}
