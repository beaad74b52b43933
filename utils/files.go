package utils

import (
	"os"
	"path/filepath"
	"regexp"
)

var SupportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

var unsafeFilename = regexp.MustCompile(`[^\w.\-]`)

func SanitizeFilename(name string) string {
	clean := unsafeFilename.ReplaceAllString(filepath.Base(name), "_")
	if clean == "" {
		return "file"
	}
	return clean
}
