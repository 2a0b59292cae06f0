package ingest

import (
	"path/filepath"
	"strings"

	"github.com/istmo-digital/docintel/constants"
)

// AllowedExt reports whether a file extension is in the accepted set.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden reports whether a file or directory name starts with a dot.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
