package apps

import (
	"path/filepath"
	"strings"
)

// baseName strips any client-supplied directory, including Windows-style
// separators, from an uploaded file name.
func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return filepath.Base(name)
}
