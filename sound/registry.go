package sound

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
)

// DefaultNamespace prefixes clip paths and may prefix event ids.
const DefaultNamespace = "minecraft"

// Registry maps sound event ids to their definitions and picks concrete clips
// from them.
//
// Definitions arrive in layers: one per loaded document plus one per Register
// call. The visible definition of an id folds its layers in load order, so a
// document can be reloaded without disturbing what other layers contributed.
type Registry struct {
	namespace string
	logger    *slog.Logger

	mu     sync.RWMutex
	layers []*layer
	defs   map[string]Definition

	rngMu sync.Mutex
	rng   *rand.Rand
}

type layer struct {
	source string
	// replace marks a layer whose definitions hide everything below them.
	replace bool
	defs    map[string]Definition
}

// Option configures a Registry.
type Option func(*Registry)

// WithRand sets the random source used for selection.
func WithRand(rng *rand.Rand) Option {
	return func(r *Registry) {
		if rng != nil {
			r.rng = rng
		}
	}
}

// WithSeed makes selection reproducible.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithNamespace overrides DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(r *Registry) {
		if ns = strings.TrimSpace(ns); ns != "" {
			r.namespace = ns
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		namespace: DefaultNamespace,
		logger:    slog.Default(),
		defs:      make(map[string]Definition),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Namespace returns the namespace clip paths are resolved in.
func (r *Registry) Namespace() string {
	return r.namespace
}

func (r *Registry) normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if ns, rest, ok := strings.Cut(id, ":"); ok && ns == r.namespace {
		return rest
	}
	return id
}

// Register inserts or replaces the definition for id.
func (r *Registry) Register(id string, def Definition) {
	id = r.normalizeID(id)
	def.ID = id
	def.Sounds = append([]Variant(nil), def.Sounds...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.layers = append(r.layers, &layer{replace: true, defs: map[string]Definition{id: def}})
	r.rebuild(id)
}

// Lookup returns the definition registered for id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[r.normalizeID(id)]
	return def, ok
}

// Len returns the number of registered events.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// IDs returns every registered event id in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDocument merges a sounds.json document into the registry. An id that is
// already registered keeps its variants and gains the new ones, unless the
// incoming definition sets replace. It returns the number of ids touched.
func (r *Registry) LoadDocument(data []byte) (int, error) {
	return r.LoadSource("", data)
}

// LoadSource is LoadDocument for a named document. Loading the same source
// again swaps out what it contributed last time instead of adding to it. An
// empty source always adds a new layer.
func (r *Registry) LoadSource(source string, data []byte) (int, error) {
	var doc map[string]Definition
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("sound: decode definitions: %w", err)
	}

	next := &layer{source: source, defs: make(map[string]Definition, len(doc))}
	for raw, def := range doc {
		id := r.normalizeID(raw)
		def.ID = id
		next.defs[id] = def
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	touched := make(map[string]struct{}, len(next.defs))
	for id := range next.defs {
		touched[id] = struct{}{}
	}

	replaced := false
	if source != "" {
		for i, l := range r.layers {
			if l.source != source {
				continue
			}
			for id := range l.defs {
				touched[id] = struct{}{}
			}
			r.layers[i] = next
			replaced = true
			break
		}
	}
	if !replaced {
		r.layers = append(r.layers, next)
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	r.rebuild(ids...)

	r.logger.Debug("sound definitions loaded",
		"source", source, "events", len(next.defs), "reloaded", replaced, "total", len(r.defs))
	return len(next.defs), nil
}

// rebuild recomputes the visible definition of each id from the layers.
// Callers hold r.mu.
func (r *Registry) rebuild(ids ...string) {
	for _, id := range ids {
		var merged Definition
		found := false
		for _, l := range r.layers {
			def, ok := l.defs[id]
			if !ok {
				continue
			}
			if !found || def.Replace || l.replace {
				merged = def
				merged.Sounds = append([]Variant(nil), def.Sounds...)
				found = true
				continue
			}
			merged.Sounds = append(merged.Sounds, def.Sounds...)
			if def.Subtitle != "" {
				merged.Subtitle = def.Subtitle
			}
			merged.Random = merged.Random || def.Random
		}
		if found {
			r.defs[id] = merged
		} else {
			delete(r.defs, id)
		}
	}
}

// SelectWeighted picks one variant with the registry's random source.
func (r *Registry) SelectWeighted(variants []Variant) (Variant, error) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return SelectWeighted(r.rng, variants)
}

// SelectWeighted draws a variant with probability proportional to its weight.
// Weights default to 1 and may be fractional. When no variant has positive
// weight the draw is uniform over the list.
func SelectWeighted(rng *rand.Rand, variants []Variant) (Variant, error) {
	if len(variants) == 0 {
		return Variant{}, ErrNoVariants
	}

	total := 0.0
	last := -1
	for i, v := range variants {
		if w := v.EffectiveWeight(); w > 0 {
			total += w
			last = i
		}
	}
	if last < 0 {
		return variants[rng.IntN(len(variants))], nil
	}

	pick := rng.Float64() * total
	cumulative := 0.0
	for _, v := range variants {
		w := v.EffectiveWeight()
		if w <= 0 {
			continue
		}
		cumulative += w
		if pick < cumulative {
			return v, nil
		}
	}
	return variants[last], nil
}

// ResolveConcrete follows weighted selections and aliases from id until it
// reaches a clip. Visiting the same id twice fails with *CyclicAliasError.
func (r *Registry) ResolveConcrete(id string) (Clip, error) {
	visited := make(map[string]struct{})
	chain := make([]string, 0, 4)
	current := r.normalizeID(id)

	for {
		chain = append(chain, current)
		if _, seen := visited[current]; seen {
			return Clip{}, &CyclicAliasError{Chain: chain}
		}
		visited[current] = struct{}{}

		def, ok := r.Lookup(current)
		if !ok {
			return Clip{}, &UnknownSoundError{ID: current}
		}
		v, err := r.SelectWeighted(def.Sounds)
		if err != nil {
			return Clip{}, fmt.Errorf("sound: resolve %q: %w", current, err)
		}
		if !r.isAlias(v) {
			if len(chain) > 1 {
				r.logger.Debug("sound alias resolved", "chain", chain, "clip", v.Name)
			}
			return v.Clip(), nil
		}
		current = r.normalizeID(v.Name)
	}
}

func (r *Registry) isAlias(v Variant) bool {
	if v.Kind == KindEvent {
		return true
	}
	if !v.Bare {
		return false
	}
	_, ok := r.Lookup(v.Name)
	return ok
}

// PreloadClips returns the distinct clips flagged for preloading, sorted by
// name.
func (r *Registry) PreloadClips() []Clip {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	clips := make([]Clip, 0)
	for _, def := range r.defs {
		for _, v := range def.Sounds {
			if !v.Preload || v.Kind != KindClip {
				continue
			}
			if _, ok := seen[v.Name]; ok {
				continue
			}
			seen[v.Name] = struct{}{}
			clips = append(clips, v.Clip())
		}
	}
	sort.Slice(clips, func(i, j int) bool { return clips[i].Name < clips[j].Name })
	return clips
}
