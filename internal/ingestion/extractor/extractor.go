// Package extractor turns uploaded files into plain UTF-8 text, dispatching on
// the file extension.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(none)"
	}
	return "unsupported file format: " + ext
}

// SupportedExtensions lists what ExtractText accepts, for help text and validation.
var SupportedExtensions = []string{".txt", ".docx", ".pdf", ".xlsx"}

// Supported reports whether filename has an extension ExtractText accepts.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func ExtractText(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	switch ext {
	case ".txt":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: file is not valid UTF-8", filename)
		}
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	case ".docx":
		return extractDOCX(data)
	case ".pdf":
		return extractPDF(data)
	case ".xlsx":
		return extractXLSX(data)
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}
