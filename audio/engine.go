package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/milk9111/menusound/common"
	"github.com/milk9111/menusound/sound"
)

const (
	minVolume = 0.0
	maxVolume = 1.0
	minPitch  = 0.5
	maxPitch  = 2.0

	defaultPreloadWorkers = 4
)

// Fetcher returns the raw bytes of a logical asset path.
type Fetcher interface {
	FetchBytes(ctx context.Context, logical string) ([]byte, error)
}

// Resolver turns a sound event id into a concrete clip.
type Resolver interface {
	ResolveConcrete(id string) (sound.Clip, error)
}

// PlayOptions tune a single PlayOnce call. Volume and Pitch override the clip
// descriptor when set.
type PlayOptions struct {
	Volume *float64
	Pitch  *float64
	Loop   bool

	// OnStart reports the started handle, or the reason nothing started.
	OnStart func(h *Handle, err error)
	// OnEnd fires once after the clip finishes on its own. It never fires for
	// a stopped or detached handle.
	OnEnd func(h *Handle)
}

// Engine plays clips through a Host. All methods except Preload must be called
// from the goroutine that calls Update.
type Engine struct {
	fetcher   Fetcher
	resolver  Resolver
	host      Host
	logger    *slog.Logger
	namespace string
	async     func(func())
	workers   int
	master    float64

	mu      sync.Mutex
	pending []func()

	// active is owned by the Update goroutine.
	active map[uuid.UUID]*Handle
	order  []uuid.UUID

	cacheMu sync.RWMutex
	cache   map[string]Buffer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithNamespace sets the namespace clip paths are built in.
func WithNamespace(ns string) EngineOption {
	return func(e *Engine) {
		if ns != "" {
			e.namespace = ns
		}
	}
}

// WithAsync replaces the goroutine launcher used for fetch and decode.
func WithAsync(run func(func())) EngineOption {
	return func(e *Engine) {
		if run != nil {
			e.async = run
		}
	}
}

// WithPreloadWorkers bounds Preload concurrency.
func WithPreloadWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMuted starts the engine with master volume 0.
func WithMuted(muted bool) EngineOption {
	return func(e *Engine) {
		if muted {
			e.master = 0
		}
	}
}

// NewEngine wires an engine to its collaborators.
func NewEngine(fetcher Fetcher, resolver Resolver, host Host, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		resolver:  resolver,
		host:      host,
		logger:    slog.Default(),
		namespace: sound.DefaultNamespace,
		async:     func(f func()) { go f() },
		workers:   defaultPreloadWorkers,
		master:    1,
		active:    make(map[uuid.UUID]*Handle),
		cache:     make(map[string]Buffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EffectiveVolume clamps a requested gain to [0, 1].
func EffectiveVolume(v float64) float64 {
	return common.Clamp(v, minVolume, maxVolume)
}

// EffectivePitch clamps a requested rate to [0.5, 2].
func EffectivePitch(p float64) float64 {
	return common.Clamp(p, minPitch, maxPitch)
}

func pick(override, descriptor *float64) float64 {
	if override != nil {
		return *override
	}
	if descriptor != nil {
		return *descriptor
	}
	return 1
}

// PlayEvent resolves id and plays the result once. Resolution errors are
// returned; load and start failures go to opts.OnStart.
func (e *Engine) PlayEvent(ctx context.Context, id string, opts PlayOptions) error {
	clip, err := e.resolver.ResolveConcrete(id)
	if err != nil {
		return err
	}
	e.PlayOnce(ctx, clip, opts)
	return nil
}

// PlayOnce fetches and decodes clip in the background and starts it on a
// later Update.
func (e *Engine) PlayOnce(ctx context.Context, clip sound.Clip, opts PlayOptions) {
	volume := EffectiveVolume(pick(opts.Volume, clip.Volume))
	pitch := EffectivePitch(pick(opts.Pitch, clip.Pitch))

	e.async(func() {
		buf, err := e.load(ctx, clip)
		e.post(func() {
			e.start(clip, buf, err, volume, pitch, opts)
		})
	})
}

func (e *Engine) start(clip sound.Clip, buf Buffer, err error, volume, pitch float64, opts PlayOptions) {
	if err != nil {
		e.logger.Warn("clip load failed", "clip", clip.Name, "err", err)
		if opts.OnStart != nil {
			opts.OnStart(nil, err)
		}
		return
	}

	voice, err := e.host.Start(buf, Params{Volume: volume * e.master, Pitch: pitch, Loop: opts.Loop})
	if err != nil {
		err = &PlaybackStartError{Clip: clip.Name, Err: err}
		e.logger.Warn("clip start failed", "clip", clip.Name, "err", err)
		if opts.OnStart != nil {
			opts.OnStart(nil, err)
		}
		return
	}

	h := &Handle{
		id:     uuid.New(),
		clip:   clip,
		volume: volume,
		pitch:  pitch,
		loop:   opts.Loop,
		size:   buf.Size(),
		voice:  voice,
		onEnd:  opts.OnEnd,
	}
	e.active[h.id] = h
	e.order = append(e.order, h.id)
	e.logger.Debug("clip started", "handle", h.String(), "volume", volume, "pitch", pitch, "loop", opts.Loop)
	if opts.OnStart != nil {
		opts.OnStart(h, nil)
	}
}

func (e *Engine) load(ctx context.Context, clip sound.Clip) (Buffer, error) {
	logical := clip.LogicalPath(e.namespace)

	e.cacheMu.RLock()
	buf, ok := e.cache[logical]
	e.cacheMu.RUnlock()
	if ok {
		return buf, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := e.fetcher.FetchBytes(ctx, logical)
	if err != nil {
		return nil, fmt.Errorf("audio: load %s: %w", clip.Name, err)
	}
	buf, err = e.host.Decode(logical, data)
	if err != nil {
		return nil, &ClipDecodeError{Clip: clip.Name, Err: err}
	}

	if clip.Preload {
		e.store(logical, buf)
	}
	return buf, nil
}

func (e *Engine) store(logical string, buf Buffer) {
	e.cacheMu.Lock()
	e.cache[logical] = buf
	e.cacheMu.Unlock()
}

func (e *Engine) post(fn func()) {
	e.mu.Lock()
	e.pending = append(e.pending, fn)
	e.mu.Unlock()
}

// Update applies finished loads and reports clips that ended on their own.
// Finished loads stay queued while the host reports it is not ready.
func (e *Engine) Update() {
	if e.hostReady() {
		e.mu.Lock()
		pending := e.pending
		e.pending = nil
		e.mu.Unlock()

		for _, fn := range pending {
			fn()
		}
	}

	var ended []*Handle
	kept := e.order[:0]
	for _, id := range e.order {
		h, ok := e.active[id]
		if !ok {
			continue
		}
		if h.voice.Playing() {
			kept = append(kept, id)
			continue
		}
		delete(e.active, id)
		h.stopped = true
		ended = append(ended, h)
	}
	e.order = kept

	for _, h := range ended {
		cb := h.onEnd
		h.onEnd = nil
		e.logger.Debug("clip ended", "handle", h.String())
		if cb != nil {
			cb(h)
		}
	}
}

func (e *Engine) hostReady() bool {
	r, ok := e.host.(Readier)
	return !ok || r.Ready()
}

// Pending returns the number of finished loads waiting for Update.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Stop detaches h and halts it. Stopping a finished handle is a no-op.
func (e *Engine) Stop(h *Handle) {
	if h == nil || h.stopped {
		return
	}
	h.Detach()
	h.stopped = true
	h.voice.Stop()
	delete(e.active, h.id)
	e.logger.Debug("clip stopped", "handle", h.String())
}

// StopAll detaches every active handle before halting them all. Loads still in
// flight are not affected.
func (e *Engine) StopAll() {
	handles := e.Active()
	for _, h := range handles {
		h.Detach()
	}
	for _, h := range handles {
		h.stopped = true
		h.voice.Stop()
	}
	clear(e.active)
	e.order = e.order[:0]
	if len(handles) > 0 {
		e.logger.Debug("all clips stopped", "count", len(handles))
	}
}

// Active returns the playing handles in start order.
func (e *Engine) Active() []*Handle {
	out := make([]*Handle, 0, len(e.active))
	for _, id := range e.order {
		if h, ok := e.active[id]; ok {
			out = append(out, h)
		}
	}
	return out
}

// ActiveCount returns the number of playing handles.
func (e *Engine) ActiveCount() int {
	return len(e.active)
}

// SetMasterVolume scales every current and future voice.
func (e *Engine) SetMasterVolume(v float64) {
	e.master = EffectiveVolume(v)
	for _, h := range e.active {
		h.voice.SetVolume(h.volume * e.master)
	}
}

// MasterVolume returns the current master gain.
func (e *Engine) MasterVolume() float64 {
	return e.master
}

// Preload decodes clips into the in-memory cache. It stops at the first
// failure.
func (e *Engine) Preload(ctx context.Context, clips []sound.Clip) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, clip := range clips {
		clip.Preload = true
		g.Go(func() error {
			_, err := e.load(gctx, clip)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.logger.Info("clips preloaded", "count", len(clips), "size", humanize.Bytes(uint64(e.CacheSize())))
	return nil
}

// Cached lists the logical paths held in the decode cache.
func (e *Engine) Cached() []string {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	out := make([]string, 0, len(e.cache))
	for p := range e.cache {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// CacheSize returns the decoded bytes held in the cache.
func (e *Engine) CacheSize() int64 {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	var total int64
	for _, buf := range e.cache {
		total += buf.Size()
	}
	return total
}
