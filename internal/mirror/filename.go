package mirror

import (
	"net/url"
	"path"
	"strings"
)

const (
	untitledName = "untitled"
	linkName     = "link"
	linkSuffix   = ".url"
)

// extensionSource proposes an extension (without the leading dot) for an item
// whose payload lives at source. An empty result means "no opinion".
type extensionSource func(item Item, source string) string

// extensionSources is tried in order; the first non-empty answer wins.
var extensionSources = []extensionSource{
	explicitExtension,
	urlExtension,
	mimeExtension,
	typeExtension,
}

// ResolveExtension returns the extension for a binary item, or "" when no
// source has one (e.g. a plain file with nothing to go on).
func ResolveExtension(item Item, source string) string {
	for _, src := range extensionSources {
		if ext := src(item, source); ext != "" {
			return ext
		}
	}
	return ""
}

// DestinationName computes the on-disk filename for a binary item fetched
// from source. The result is never empty. Names that would be empty, hidden,
// or the bare placeholder fall back to the item id, and to the placeholder
// only when the item has no usable id.
func DestinationName(item Item, source string) string {
	ext := ResolveExtension(item, source)

	name := item.Name
	if name == "" {
		name = untitledName
	}
	name = Sanitize(name)

	if ext != "" && !strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(ext)) {
		name += "." + ext
	}

	if degenerateName(name) {
		name = Sanitize(string(item.ID))
		if degenerateName(name) {
			name = untitledName
		}
		if ext != "" {
			name += "." + ext
		}
	}
	return name
}

func degenerateName(name string) bool {
	return name == "" || name == untitledName || strings.HasPrefix(name, ".")
}

// LinkName computes the on-disk filename for a link item.
func LinkName(item Item) string {
	name := item.Name
	if name == "" {
		name = linkName
	}
	return Sanitize(name) + linkSuffix
}

func explicitExtension(item Item, _ string) string {
	return item.Extension
}

// urlExtension reads the extension off the source URL's path. Case is kept.
func urlExtension(_ Item, source string) string {
	u, err := url.Parse(source)
	if err != nil || !u.IsAbs() {
		return ""
	}
	return strings.TrimPrefix(extname(u.Path), ".")
}

func mimeExtension(item Item, _ string) string {
	if item.MIME == "" {
		return ""
	}
	return ExtensionForMIME(item.MIME)
}

// typeFallbackExtensions covers media types whose payload is almost always
// in one container format. Plain files have no fallback.
var typeFallbackExtensions = map[string]string{
	TypeImage: "jpg",
	TypeAudio: "mp3",
	TypeVideo: "mp4",
}

func typeExtension(item Item, _ string) string {
	return typeFallbackExtensions[item.Type]
}

// extname returns the extension of the last path element including the dot.
// Dot-files such as ".profile" have no extension.
func extname(p string) string {
	base := path.Base(p)
	i := strings.LastIndex(base, ".")
	if i <= 0 {
		return ""
	}
	return base[i:]
}
