package treediff

import (
	"path/filepath"
	"strings"
)

// binaryExtensions lists extensions that are always compared byte for byte
//
//nolint:gochecknoglobals // read-only lookup table
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".webp": true,
	".zip": true, ".tgz": true, ".gz": true, ".tar": true, ".bz2": true, ".xz": true,
	".db": true, ".sqlite": true, ".dsidx": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true,
	".pdf": true, ".so": true, ".dylib": true, ".dll": true, ".exe": true, ".o": true, ".a": true,
}

// sniffLen bounds how much content is inspected
const sniffLen = 8192

// IsBinary reports whether a file is compared byte for byte rather than as text. The
// extension is checked first; otherwise the first 8KB are inspected for NUL bytes or a
// high share of non-text bytes.
func IsBinary(path string, content []byte) bool {
	if binaryExtensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	return isBinaryContent(content)
}

func isBinaryContent(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	checkLen := min(len(content), sniffLen)
	nonText := 0
	for _, b := range content[:checkLen] {
		if b == 0 {
			return true
		}
		if b < 32 && b != '\t' && b != '\n' && b != '\r' && b != '\f' && b != 0x1b {
			nonText++
		}
	}

	// bytes above 127 are taken as UTF-8 text
	return nonText > checkLen*30/100
}
