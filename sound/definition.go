package sound

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Kind tags what a Variant points at.
type Kind int

const (
	// KindClip names an audio file.
	KindClip Kind = iota
	// KindEvent names another sound event.
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindClip:
		return "clip"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Variant is one weighted candidate of a Definition.
//
// A variant written as a bare string is a reference: it aliases the event of
// that name when one is registered and plays the clip of that name otherwise.
// Objects are clips unless they carry "type": "event". Weight may be any
// non-negative number, fractions included.
type Variant struct {
	Name    string
	Kind    Kind
	Bare    bool
	Volume  *float64
	Pitch   *float64
	Weight  *float64
	Preload bool
	Stream  bool
}

// Direct returns a clip variant.
func Direct(name string) Variant {
	return Variant{Name: name, Kind: KindClip}
}

// Alias returns a variant redirecting to the event target.
func Alias(target string) Variant {
	return Variant{Name: target, Kind: KindEvent}
}

// WithWeight returns a copy of v with the given selection weight.
func (v Variant) WithWeight(w float64) Variant {
	v.Weight = &w
	return v
}

// EffectiveWeight is the selection weight, 1 when unset and never negative.
func (v Variant) EffectiveWeight() float64 {
	if v.Weight == nil {
		return 1
	}
	if !(*v.Weight > 0) {
		return 0
	}
	return *v.Weight
}

// Clip returns the playable descriptor of a clip variant.
func (v Variant) Clip() Clip {
	return Clip{
		Name:    v.Name,
		Volume:  v.Volume,
		Pitch:   v.Pitch,
		Preload: v.Preload,
		Stream:  v.Stream,
	}
}

type variantObject struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Volume  *float64 `json:"volume"`
	Pitch   *float64 `json:"pitch"`
	Weight  *float64 `json:"weight"`
	Preload bool     `json:"preload"`
	Stream  bool     `json:"stream"`
}

// UnmarshalJSON accepts either a bare string or a variant object.
func (v *Variant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("sound variant: empty name")
		}
		*v = Variant{Name: name, Kind: KindClip, Bare: true}
		return nil
	}

	var obj variantObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("sound variant: %w", err)
	}
	if strings.TrimSpace(obj.Name) == "" {
		return fmt.Errorf("sound variant: missing name")
	}

	kind := KindClip
	switch obj.Type {
	case "", "file":
	case "event":
		kind = KindEvent
	default:
		return fmt.Errorf("sound variant %q: unknown type %q", obj.Name, obj.Type)
	}

	*v = Variant{
		Name:    obj.Name,
		Kind:    kind,
		Volume:  obj.Volume,
		Pitch:   obj.Pitch,
		Weight:  obj.Weight,
		Preload: obj.Preload,
		Stream:  obj.Stream,
	}
	return nil
}

// Definition is everything registered under one sound event id.
type Definition struct {
	ID       string    `json:"-"`
	Name     string    `json:"name,omitempty"`
	Sounds   []Variant `json:"sounds"`
	Subtitle string    `json:"subtitle,omitempty"`
	Replace  bool      `json:"replace,omitempty"`
	Random   bool      `json:"random,omitempty"`
}

// Clip is a concrete, playable clip descriptor.
type Clip struct {
	Name    string
	Volume  *float64
	Pitch   *float64
	Preload bool
	Stream  bool
}

// DefaultExtension is appended to clip names that do not name a supported
// audio format.
const DefaultExtension = ".ogg"

var clipExtensions = map[string]bool{".ogg": true, ".wav": true, ".mp3": true}

// LogicalPath returns the asset path of the clip file. A "ns:path" name
// overrides the default namespace. Names ending in .ogg, .wav or .mp3 keep
// their extension; any other name gets DefaultExtension.
func (c Clip) LogicalPath(namespace string) string {
	name := c.Name
	if ns, rest, ok := strings.Cut(name, ":"); ok {
		namespace, name = ns, rest
	}
	if !clipExtensions[strings.ToLower(path.Ext(name))] {
		name += DefaultExtension
	}
	return namespace + "/sounds/" + name
}

func (c Clip) String() string {
	return c.Name
}
