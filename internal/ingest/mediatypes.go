package ingest

import (
	"mime"
	"path/filepath"
	"strings"
)

// mediaTypesByExt covers common media extensions that Go's built-in table
// leaves to the host's mime.types files.
var mediaTypesByExt = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".heic": "image/heic",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".bmp":  "image/bmp",
}

// typeByName guesses a media type from a filename's extension.
// Returns "" when the extension is unknown.
func typeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if t, ok := mediaTypesByExt[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}
