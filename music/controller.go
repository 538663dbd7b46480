package music

import (
	"context"
	"log/slog"

	"github.com/milk9111/menusound/audio"
	"github.com/milk9111/menusound/sound"
)

// Player is the playback surface the controller drives. *audio.Engine
// satisfies it.
type Player interface {
	PlayOnce(ctx context.Context, clip sound.Clip, opts audio.PlayOptions)
	Stop(h *audio.Handle)
	StopAll()
}

// Resolver picks a concrete clip for an event id.
type Resolver interface {
	ResolveConcrete(id string) (sound.Clip, error)
}

type session struct {
	eventID    string
	generation uint64
	handle     *audio.Handle
	volume     *float64
	pitch      *float64
}

// Controller keeps at most one event looping. Each time the current clip ends
// it resolves the event again, so weighted variants rotate.
//
// Every callback is bound to the generation it was issued under. Stop and
// Start bump the generation, which turns older callbacks into no-ops.
type Controller struct {
	resolver Resolver
	player   Player
	logger   *slog.Logger
	screens  map[string]string

	generation uint64
	current    *session
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithScreens maps menu screen names to the event that loops behind them.
func WithScreens(screens map[string]string) Option {
	return func(c *Controller) {
		for screen, id := range screens {
			c.screens[screen] = id
		}
	}
}

// New returns an idle controller.
func New(resolver Resolver, player Player, opts ...Option) *Controller {
	c := &Controller{
		resolver: resolver,
		player:   player,
		logger:   slog.Default(),
		screens:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartOption tunes one loop session.
type StartOption func(*session)

// WithVolume overrides the clip volume for every iteration of the session.
func WithVolume(v float64) StartOption {
	return func(s *session) { s.volume = &v }
}

// WithPitch overrides the clip pitch for every iteration of the session.
func WithPitch(p float64) StartOption {
	return func(s *session) { s.pitch = &p }
}

// Start stops the current session and begins looping id. If id cannot be
// resolved the controller stays idle and the error is returned.
func (c *Controller) Start(ctx context.Context, id string, opts ...StartOption) error {
	c.Stop()
	c.generation++

	clip, err := c.resolver.ResolveConcrete(id)
	if err != nil {
		c.logger.Warn("music: resolve failed", "event", id, "err", err)
		return err
	}

	s := &session{eventID: id, generation: c.generation}
	for _, opt := range opts {
		opt(s)
	}
	c.current = s
	c.logger.Info("music: start", "event", id, "clip", clip.Name, "generation", s.generation)
	c.play(ctx, s, clip)
	return nil
}

func (c *Controller) play(ctx context.Context, s *session, clip sound.Clip) {
	next := context.WithoutCancel(ctx)
	c.player.PlayOnce(ctx, clip, audio.PlayOptions{
		Volume: s.volume,
		Pitch:  s.pitch,
		OnStart: func(h *audio.Handle, err error) {
			c.started(s, h, err)
		},
		OnEnd: func(h *audio.Handle) {
			c.ended(next, s, h)
		},
	})
}

func (c *Controller) stale(s *session) bool {
	return c.current != s || s.generation != c.generation
}

func (c *Controller) started(s *session, h *audio.Handle, err error) {
	if c.stale(s) {
		if h != nil {
			c.logger.Debug("music: stopping orphaned clip", "event", s.eventID, "handle", h.String())
			c.player.Stop(h)
		}
		return
	}
	if err != nil {
		c.logger.Warn("music: clip failed", "event", s.eventID, "err", err)
		c.current = nil
		return
	}
	s.handle = h
}

func (c *Controller) ended(ctx context.Context, s *session, h *audio.Handle) {
	if c.stale(s) {
		return
	}
	s.handle = nil

	clip, err := c.resolver.ResolveConcrete(s.eventID)
	if err != nil {
		c.logger.Warn("music: resolve failed", "event", s.eventID, "err", err)
		c.current = nil
		return
	}
	c.logger.Debug("music: next clip", "event", s.eventID, "clip", clip.Name)
	c.play(ctx, s, clip)
}

// Stop ends the current session. It is a no-op when idle.
func (c *Controller) Stop() {
	s := c.current
	if s == nil {
		return
	}
	c.generation++
	c.current = nil
	if s.handle != nil {
		c.player.Stop(s.handle)
		s.handle = nil
	}
	c.logger.Info("music: stop", "event", s.eventID)
}

// ForScreen silences everything and starts the loop mapped to screen, if any.
func (c *Controller) ForScreen(ctx context.Context, screen string) error {
	c.Stop()
	c.player.StopAll()

	id, ok := c.screens[screen]
	if !ok || id == "" {
		c.logger.Debug("music: screen has no loop", "screen", screen)
		return nil
	}
	return c.Start(ctx, id)
}

// Playing reports whether a session is active.
func (c *Controller) Playing() bool {
	return c.current != nil
}

// EventID returns the looping event, or "" when idle.
func (c *Controller) EventID() string {
	if c.current == nil {
		return ""
	}
	return c.current.eventID
}

// Generation returns the current generation counter.
func (c *Controller) Generation() uint64 {
	return c.generation
}

// Handle returns the handle of the clip currently sounding, if any.
func (c *Controller) Handle() *audio.Handle {
	if c.current == nil {
		return nil
	}
	return c.current.handle
}
