package assets

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

// ManifestEntry maps one logical path to its content-addressed object.
type ManifestEntry struct {
	LogicalPath string
	Hash        string
	Size        int64
}

// ObjectPath returns the sharded location of the object relative to the
// asset root: objects/<first two hash chars>/<hash>.
func (e ManifestEntry) ObjectPath() string {
	return path.Join("objects", e.Hash[:2], e.Hash)
}

// Manifest is the immutable logical path index loaded at startup.
type Manifest struct {
	entries map[string]ManifestEntry
}

type manifestDocument struct {
	Objects map[string]struct {
		Hash string `json:"hash"`
		Size int64  `json:"size"`
	} `json:"objects"`
}

// ParseManifest decodes an objects.json document.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc manifestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if doc.Objects == nil {
		return nil, fmt.Errorf("decode manifest: missing \"objects\"")
	}

	entries := make(map[string]ManifestEntry, len(doc.Objects))
	for logical, obj := range doc.Objects {
		hash := strings.ToLower(strings.TrimSpace(obj.Hash))
		if len(hash) < 2 {
			return nil, fmt.Errorf("manifest entry %q: hash %q too short", logical, obj.Hash)
		}
		if !isHex(hash) {
			return nil, fmt.Errorf("manifest entry %q: hash %q is not hex", logical, obj.Hash)
		}
		if obj.Size < 0 {
			return nil, fmt.Errorf("manifest entry %q: negative size %d", logical, obj.Size)
		}
		key := CleanPath(logical)
		entries[key] = ManifestEntry{LogicalPath: key, Hash: hash, Size: obj.Size}
	}
	return &Manifest{entries: entries}, nil
}

// Lookup returns the entry for a logical path.
func (m *Manifest) Lookup(logical string) (ManifestEntry, bool) {
	if m == nil {
		return ManifestEntry{}, false
	}
	e, ok := m.entries[CleanPath(logical)]
	return e, ok
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// TotalSize sums the sizes of every entry.
func (m *Manifest) TotalSize() int64 {
	var total int64
	if m == nil {
		return 0
	}
	for _, e := range m.entries {
		total += e.Size
	}
	return total
}

// Paths returns every logical path in sorted order.
func (m *Manifest) Paths() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.entries))
	for p := range m.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
