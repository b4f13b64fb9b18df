package mirror

import "errors"

var (
	// ErrDiscovery marks a failed activity feed fetch. It never escapes
	// DiscoverCollections; it only shows up in logs.
	ErrDiscovery = errors.New("collection discovery failed")

	// ErrManifest marks a failed collection manifest fetch or decode.
	ErrManifest = errors.New("manifest unavailable")

	// ErrItem marks a failed binary fetch or write for a single item.
	ErrItem = errors.New("item failed")

	// ErrManualResolution marks a manual id or URL that did not resolve to a
	// retrievable manifest.
	ErrManualResolution = errors.New("collection could not be resolved")
)
