package assets

import (
	"path"
	"path/filepath"
	"strings"
)

// DefaultRoot is the directory every physical location is served under.
const DefaultRoot = "assets"

// CleanPath normalises a logical asset path: slashes are forward, a leading
// "assets/" or "./assets/" is dropped and "." segments are collapsed.
func CleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	s := filepath.ToSlash(p)
	s = strings.TrimPrefix(s, "./")
	if after, ok := strings.CutPrefix(s, DefaultRoot+"/"); ok {
		s = after
	}
	s = path.Clean(s)
	return strings.TrimPrefix(s, "/")
}
