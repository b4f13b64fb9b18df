package mirror

import (
	"mime"
	"strings"
)

// mimeExtensions maps a media type to its canonical extension. Entries follow
// the first extension the IANA/mime-db registry lists for the type, which is
// not always the most popular one (audio/mpeg is "mpga", video/quicktime "qt").
var mimeExtensions = map[string]string{
	"application/epub+zip":          "epub",
	"application/gzip":              "gz",
	"application/json":              "json",
	"application/msword":            "doc",
	"application/octet-stream":      "bin",
	"application/pdf":               "pdf",
	"application/postscript":        "ai",
	"application/rtf":               "rtf",
	"application/vnd.ms-excel":      "xls",
	"application/vnd.ms-powerpoint": "ppt",

	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",

	"application/x-7z-compressed":  "7z",
	"application/x-rar-compressed": "rar",
	"application/x-tar":            "tar",
	"application/xml":              "xml",
	"application/zip":              "zip",
	"audio/aac":                    "aac",
	"audio/flac":                   "flac",
	"audio/midi":                   "mid",
	"audio/mp4":                    "m4a",
	"audio/mpeg":                   "mpga",
	"audio/ogg":                    "oga",
	"audio/wav":                    "wav",
	"audio/webm":                   "weba",
	"audio/x-flac":                 "flac",
	"audio/x-m4a":                  "m4a",
	"audio/x-wav":                  "wav",
	"font/otf":                     "otf",
	"font/ttf":                     "ttf",
	"font/woff":                    "woff",
	"font/woff2":                   "woff2",
	"image/avif":                   "avif",
	"image/bmp":                    "bmp",
	"image/gif":                    "gif",
	"image/heic":                   "heic",
	"image/heif":                   "heif",
	"image/jpeg":                   "jpeg",
	"image/png":                    "png",
	"image/svg+xml":                "svg",
	"image/tiff":                   "tif",
	"image/vnd.adobe.photoshop":    "psd",
	"image/vnd.microsoft.icon":     "ico",
	"image/webp":                   "webp",
	"image/x-icon":                 "ico",
	"text/calendar":                "ics",
	"text/css":                     "css",
	"text/csv":                     "csv",
	"text/html":                    "html",
	"text/markdown":                "md",
	"text/plain":                   "txt",
	"video/3gpp":                   "3gp",
	"video/mp4":                    "mp4",
	"video/mpeg":                   "mpeg",
	"video/ogg":                    "ogv",
	"video/quicktime":              "qt",
	"video/webm":                   "webm",
	"video/x-matroska":             "mkv",
	"video/x-msvideo":              "avi",
}

// ExtensionForMIME returns the canonical extension (no dot) for a media type,
// ignoring parameters and case. Types missing from the built-in table fall
// back to the platform's mime database; unknown types yield "".
func ExtensionForMIME(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "" {
		return ""
	}
	if ext, ok := mimeExtensions[mt]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mt)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}
