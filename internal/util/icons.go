package util

import (
	"path"
	"strings"

	"github.com/sadopc/volscan/internal/model"
)

// glyphGroups maps a glyph to the file extensions it marks.
var glyphGroups = map[string][]string{
	"💻": {".go", ".py", ".js", ".ts", ".rs", ".c", ".cpp", ".h", ".java", ".cs", ".rb", ".sh"},
	"📋": {".json", ".yaml", ".yml", ".toml", ".xml", ".ini", ".conf"},
	"📝": {".md", ".txt", ".rst", ".log"},
	"📕": {".pdf", ".doc", ".docx", ".odt"},
	"📊": {".csv", ".xls", ".xlsx", ".ods"},
	"🖼": {".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".bmp"},
	"🎬": {".mp4", ".mkv", ".avi", ".mov", ".webm"},
	"🎵": {".mp3", ".flac", ".wav", ".ogg"},
	"📦": {".zip", ".tar", ".gz", ".xz", ".zst", ".7z", ".rar"},
	"💿": {".iso", ".img", ".dmg", ".vhd", ".vmdk"},
	"🗄": {".db", ".sqlite", ".mdb"},
	"⚡": {".exe", ".dll", ".so", ".bin"},
}

var extGlyph = func() map[string]string {
	m := make(map[string]string)
	for glyph, exts := range glyphGroups {
		for _, ext := range exts {
			m[ext] = glyph
		}
	}
	return m
}()

// Icon returns a glyph for a node of the given kind and name.
func Icon(kind model.Kind, name string) string {
	switch kind {
	case model.KindVolume:
		return "💽"
	case model.KindDirectory:
		if strings.HasPrefix(name, ".") {
			return "🗂"
		}
		return "📁"
	}
	if g, ok := extGlyph[strings.ToLower(path.Ext(name))]; ok {
		return g
	}
	return "📄"
}
