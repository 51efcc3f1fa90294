// Package snap defines the snapshot payload: one captured UI example
// awaiting comparison, plus the asset-reference handling around packaging.
package snap

// Payload is one captured example. Its identity for caching purposes is its
// content only, never the target that requested it: payloads are reused
// across targets, so target-specific asset paths must be stripped after
// packaging (see StripAssetPaths).
type Payload struct {
	Component string `json:"component"`
	Variant   string `json:"variant"`
	HTML      string `json:"html"`

	// IsError flags a failed render; Cause carries the render failure.
	IsError bool  `json:"isError,omitempty"`
	Cause   error `json:"-"`

	// AssetPaths are files referenced by the rendered markup, relative to
	// the project root. Populated by ExtractAssetPaths, consumed once by
	// packaging, then cleared.
	AssetPaths []string `json:"assetPaths,omitempty"`
}

// Key returns the example identity used in logs and error attribution.
func (p Payload) Key() string {
	return p.Component + "/" + p.Variant
}

// StripAssetPaths clears per-example asset references in place. Packaging
// resolves the references into the bundle; leaving them on the payload would
// leak one target's paths into the next target's processing.
func StripAssetPaths(payloads []Payload) {
	for i := range payloads {
		payloads[i].AssetPaths = nil
	}
}

// Failures collects the erroring payloads from a target pass.
func Failures(payloads []Payload) []Payload {
	var failed []Payload
	for _, p := range payloads {
		if p.IsError {
			failed = append(failed, p)
		}
	}
	return failed
}
